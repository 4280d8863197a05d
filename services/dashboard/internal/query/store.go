package query

import (
	"context"
	"time"
)

// Entry is the stored form of a query result. Data is the JSON encoding of
// the last successful result.
type Entry struct {
	Data      []byte
	UpdatedAt time.Time
	Stale     bool
}

// Store persists entries together with a generation counter per tag. Every
// process sharing a store sees the same generations, so a load that began
// before any of them invalidated the tag is never written back as fresh.
// Implementations must be safe for concurrent use and must not retain or hand
// out the caller's byte slices.
type Store interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	// Generation returns the tag's current generation; zero before the first MarkStale.
	Generation(ctx context.Context, tag string) (uint64, error)
	// SetIfGeneration writes entry only while the tag is still at gen and
	// reports whether it did.
	SetIfGeneration(ctx context.Context, key Key, entry Entry, gen uint64) (bool, error)
	// MarkStale bumps the tag's generation, flags every entry of the tag and
	// returns how many were flagged.
	MarkStale(ctx context.Context, tag string) (int, error)
}
