// Package cache implements the Redis-backed query cache used in front of the
// relational store. Entries hold serialized query results keyed by resource
// and query parameters; they are opportunistically populated on read-miss and
// explicitly deleted, by glob pattern, on any mutation that could change the
// matching result set.
//
// The cache is never authoritative: a nil or unreachable Redis client
// degrades every operation to a no-op miss, and a Set racing an Invalidate
// may leave a stale entry alive until its TTL expires. Callers treat this as
// an accepted staleness window.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Key layout, shared with the invalidation call sites in the service layer.
const (
	// KeyAnimalList caches the full animal listing.
	KeyAnimalList = "animals:list"
	// PatternAnimalLists matches every animal list/search entry.
	PatternAnimalLists = "animals:*"
)

var (
	cacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Cache operations by kind (hit, miss, set, invalidate, error).",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(cacheOps)
}

// Stats is a point-in-time snapshot of cache effectiveness counters,
// exposed on the ops endpoint alongside the Prometheus metrics.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// Store is a thin wrapper over a Redis client providing get/set-with-TTL and
// glob-pattern invalidation. The zero value (nil client) is usable and
// behaves as an always-miss cache.
type Store struct {
	client redis.UniversalClient

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
	errors atomic.Int64
}

// New returns a Store backed by the given Redis client. A nil client is
// allowed and yields a no-op cache.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Get returns the cached value for key and whether it was present.
// Connectivity errors are counted and reported as a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if s == nil || s.client == nil {
		return nil, false
	}
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		s.misses.Add(1)
		cacheOps.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		s.errors.Add(1)
		cacheOps.WithLabelValues("error").Inc()
		return nil, false
	}
	s.hits.Add(1)
	cacheOps.WithLabelValues("hit").Inc()
	return val, true
}

// SetWithTTL stores value under key for the given TTL. A non-positive TTL
// disables the write.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil || s.client == nil || ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.errors.Add(1)
		cacheOps.WithLabelValues("error").Inc()
		return err
	}
	s.sets.Add(1)
	cacheOps.WithLabelValues("set").Inc()
	return nil
}

// Invalidate deletes every key matching the glob pattern and returns how
// many were removed. Keys are collected with SCAN (KEYS blocks the server on
// large datasets) and deleted in one batch.
func (s *Store) Invalidate(ctx context.Context, pattern string) (int, error) {
	if s == nil || s.client == nil {
		return 0, nil
	}

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.errors.Add(1)
		cacheOps.WithLabelValues("error").Inc()
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.errors.Add(1)
		cacheOps.WithLabelValues("error").Inc()
		return 0, err
	}
	cacheOps.WithLabelValues("invalidate").Inc()
	return len(keys), nil
}

// Stats returns a snapshot of the store's counters.
func (s *Store) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Sets:   s.sets.Load(),
		Errors: s.errors.Load(),
	}
}

// ResetStats zeroes the snapshot counters (Prometheus counters are left
// untouched; they are cumulative by design).
func (s *Store) ResetStats() {
	if s == nil {
		return
	}
	s.hits.Store(0)
	s.misses.Store(0)
	s.sets.Store(0)
	s.errors.Store(0)
}

// AnimalKey returns the cache key for a single animal's detail entry.
func AnimalKey(id uint) string {
	return "animal:" + utoa(id)
}

// utoa formats a uint without pulling in fmt on the hot path.
func utoa(v uint) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
