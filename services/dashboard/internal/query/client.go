package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Stats counts cache activity since the client was created.
type Stats struct {
	Hits          int64
	Loads         int64
	Invalidations int64
}

// Client is the shared query cache. Results stay fresh until their tag is
// invalidated. Concurrent fetches of one key share a single load.
type Client struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	group singleflight.Group

	mu            sync.Mutex
	invalidatedAt map[string]time.Time
	subscribers   map[string]map[uint64]func()
	nextSubID     uint64

	hits          atomic.Int64
	loads         atomic.Int64
	invalidations atomic.Int64
}

// NewClient builds a client over store.
func NewClient(store Store, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		store:         store,
		logger:        logger,
		now:           time.Now,
		invalidatedAt: make(map[string]time.Time),
		subscribers:   make(map[string]map[uint64]func()),
	}
}

// Fetch returns the cached result for key or loads it with fn. The result is
// decoded into a fresh value on every call. A failed load returns the error and
// leaves any previously stored result in place.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	data, err := c.fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("query: decode %s: %w", key, err)
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, key Key, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok := c.lookup(ctx, key); ok {
		return data, nil
	}

	// a load is only written back while the store's generation for the tag
	// is unchanged; without one the result is served but not cached
	gen, err := c.store.Generation(ctx, key.Tag)
	cacheable := err == nil
	if err != nil {
		c.logger.Warn("query store generation read failed", zap.String("tag", key.Tag), zap.Error(err))
	}
	flightKey := fmt.Sprintf("%s#%d#%t", key, gen, cacheable)

	v, err, _ := c.group.Do(flightKey, func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)

		// a flight for this key may have finished between lookup and Do
		if data, ok := c.lookup(loadCtx, key); ok {
			return data, nil
		}

		c.loads.Add(1)
		c.logger.Debug("query load", zap.String("key", key.String()), zap.Uint64("generation", gen))
		data, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if cacheable {
			c.save(loadCtx, key, gen, data)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Client) lookup(ctx context.Context, key Key) ([]byte, bool) {
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("query store read failed", zap.String("key", key.String()), zap.Error(err))
		return nil, false
	}
	if !ok || entry.Stale {
		return nil, false
	}

	c.mu.Lock()
	cutoff := c.invalidatedAt[key.Tag]
	c.mu.Unlock()
	if entry.UpdatedAt.Before(cutoff) {
		return nil, false
	}

	c.hits.Add(1)
	return entry.Data, true
}

// save stores data unless the tag was invalidated, by this or any other
// client sharing the store, after the load started.
func (c *Client) save(ctx context.Context, key Key, gen uint64, data []byte) {
	stored, err := c.store.SetIfGeneration(ctx, key, Entry{Data: data, UpdatedAt: c.now()}, gen)
	if err != nil {
		c.logger.Warn("query store write failed", zap.String("key", key.String()), zap.Error(err))
		return
	}
	if !stored {
		c.logger.Debug("query result superseded by invalidation", zap.String("key", key.String()))
	}
}

// Invalidate marks every entry of each tag stale and then notifies the tags'
// subscribers. A subscriber that refetches from its callback always observes
// the post-invalidation state.
func (c *Client) Invalidate(ctx context.Context, tags ...string) error {
	var (
		errs   []error
		notify []func()
	)

	c.mu.Lock()
	now := c.now()
	for _, tag := range tags {
		c.invalidatedAt[tag] = now
		n, err := c.store.MarkStale(ctx, tag)
		if err != nil {
			errs = append(errs, fmt.Errorf("query: invalidate %s: %w", tag, err))
		}
		c.invalidations.Add(1)
		c.logger.Debug("query invalidated", zap.String("tag", tag), zap.Int("entries", n))
		for _, fn := range c.subscribers[tag] {
			notify = append(notify, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	return errors.Join(errs...)
}

// Subscribe registers fn to run after tag is invalidated. The returned func
// removes the subscription.
func (c *Client) Subscribe(tag string, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	subs, ok := c.subscribers[tag]
	if !ok {
		subs = make(map[uint64]func())
		c.subscribers[tag] = subs
	}
	subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subscribers[tag], id)
		})
	}
}

// Stats returns a snapshot of the counters.
func (c *Client) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Loads:         c.loads.Load(),
		Invalidations: c.invalidations.Load(),
	}
}
