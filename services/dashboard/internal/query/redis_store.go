package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldData      = "data"
	fieldUpdatedAt = "updated_at"
	fieldStale     = "stale"

	scanBatch = 100
)

// RedisStore keeps entries as hashes under "<prefix>:<tag>:<args>" and tag
// generations as counters under "<prefix>#gen:<tag>", so several dashboard
// instances can share one cache.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns redis-backed store. A zero ttl keeps entries until evicted.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "statementviewer:query"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(key Key) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, key.Tag, key.Args)
}

func (s *RedisStore) generationKey(tag string) string {
	return fmt.Sprintf("%s#gen:%s", s.prefix, tag)
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key Key) (Entry, bool, error) {
	values, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	data, ok := values[fieldData]
	if !ok {
		return Entry{}, false, nil
	}

	entry := Entry{Data: []byte(data), Stale: values[fieldStale] == "1"}
	if raw := values[fieldUpdatedAt]; raw != "" {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Entry{}, false, fmt.Errorf("query: decode %s: %w", fieldUpdatedAt, err)
		}
		entry.UpdatedAt = time.Unix(0, nanos)
	}
	return entry, true, nil
}

// Generation implements Store.
func (s *RedisStore) Generation(ctx context.Context, tag string) (uint64, error) {
	gen, err := s.client.Get(ctx, s.generationKey(tag)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetIfGeneration implements Store. The generation counter is WATCHed, so an
// INCR from another instance between the check and the write aborts it.
func (s *RedisStore) SetIfGeneration(ctx context.Context, key Key, entry Entry, gen uint64) (bool, error) {
	stale := "0"
	if entry.Stale {
		stale = "1"
	}
	k := s.key(key)
	genKey := s.generationKey(key.Tag)

	stored := false
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k,
				fieldData, entry.Data,
				fieldUpdatedAt, strconv.FormatInt(entry.UpdatedAt.UnixNano(), 10),
				fieldStale, stale,
			)
			if s.ttl > 0 {
				pipe.Expire(ctx, k, s.ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}
		stored = true
		return nil
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// MarkStale implements Store.
func (s *RedisStore) MarkStale(ctx context.Context, tag string) (int, error) {
	// bump first: a write racing this call either lands before the INCR and
	// is flagged by the scan below, or fails its generation check
	if err := s.client.Incr(ctx, s.generationKey(tag)).Err(); err != nil {
		return 0, err
	}
	match := fmt.Sprintf("%s:%s:*", s.prefix, tag)

	marked := 0
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return marked, err
		}
		if len(keys) > 0 {
			pipe := s.client.Pipeline()
			for _, k := range keys {
				pipe.HSet(ctx, k, fieldStale, "1")
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return marked, err
			}
			marked += len(keys)
		}
		if next == 0 {
			return marked, nil
		}
		cursor = next
	}
}

var _ Store = (*RedisStore)(nil)
