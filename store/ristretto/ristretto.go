package ristretto

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/fragcache/store"
)

// Store wraps a ristretto cache. Ristretto hashes keys and cannot enumerate
// them, so the adapter keeps its own index of written keys for DelMatching.
// Keys ristretto has evicted or expired are pruned from the index on every
// DelMatching and every pruneEvery writes.
type Store struct {
	c *rc.Cache

	mu     sync.Mutex
	index  map[string]struct{}
	writes int
}

const pruneEvery = 1024

var _ store.Store = (*Store)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost in Ristretto is provided by the caller (fragcache passes cost per Set).
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c, index: make(map[string]struct{})}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Store) GetMulti(ctx context.Context, keys ...string) (map[string][]byte, error) {
	return store.GetEach(ctx, s, keys)
}

// Set waits for ristretto's write buffers to drain so a Get issued right after
// observes the value (or its rejection).
func (s *Store) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok := s.c.SetWithTTL(key, value, cost, ttl)
	s.c.Wait()
	if ok {
		s.mu.Lock()
		s.index[key] = struct{}{}
		s.writes++
		if s.writes%pruneEvery == 0 {
			s.pruneLocked()
		}
		s.mu.Unlock()
	}
	return ok, nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.c.Del(key)
	s.mu.Lock()
	delete(s.index, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) DelMatching(_ context.Context, pattern *regexp.Regexp) (int, error) {
	s.mu.Lock()
	var keys []string
	for k := range s.index {
		if pattern.MatchString(k) {
			keys = append(keys, k)
			delete(s.index, k)
		}
	}
	s.pruneLocked()
	s.mu.Unlock()

	removed := 0
	for _, k := range keys {
		if _, ok := s.c.Get(k); ok {
			removed++
		}
		s.c.Del(k)
	}
	s.c.Wait()
	return removed, nil
}

// pruneLocked drops index keys the cache no longer holds. s.mu must be held.
func (s *Store) pruneLocked() {
	for k := range s.index {
		if _, ok := s.c.GetTTL(k); !ok {
			delete(s.index, k)
		}
	}
}

func (s *Store) Close(_ context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Helper to expose metrics if desired by the application (not part of store.Store).
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }
