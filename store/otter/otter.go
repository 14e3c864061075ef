// Package otter is an in-process Store backed by a bounded W-TinyLFU cache.
// Useful for single-replica deployments and tests that want a real eviction
// policy behind the scope tier.
package otter

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/unkn0wn-root/fragcache/store"
)

// entry wraps a stored value with its expiration time (zero => no expiry).
type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type Store struct {
	cache *otter.Cache[string, entry]
}

var _ store.Store = (*Store)(nil)

type Config struct {
	MaxSize int           // max entry count; 0 => 10_000
	MaxTTL  time.Duration // upper bound applied by otter itself; 0 => none
}

func New(cfg Config) (*Store, error) {
	size := cfg.MaxSize
	if size <= 0 {
		size = 10_000
	}
	opts := &otter.Options[string, entry]{MaximumSize: size}
	if cfg.MaxTTL > 0 {
		opts.ExpiryCalculator = otter.ExpiryWriting[string, entry](cfg.MaxTTL)
	}
	c, err := otter.New[string, entry](opts)
	if err != nil {
		return nil, fmt.Errorf("create otter store: %w", err)
	}
	return &Store{cache: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := s.cache.GetIfPresent(key)
	if !ok {
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		s.cache.Invalidate(key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (s *Store) GetMulti(ctx context.Context, keys ...string) (map[string][]byte, error) {
	return store.GetEach(ctx, s, keys)
}

func (s *Store) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	e := entry{data: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.cache.Set(key, e)
	return true, nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.cache.Invalidate(key)
	return nil
}

func (s *Store) DelMatching(_ context.Context, pattern *regexp.Regexp) (int, error) {
	var keys []string
	for k := range s.cache.All() {
		if pattern.MatchString(k) {
			keys = append(keys, k)
		}
	}
	removed := 0
	for _, k := range keys {
		if _, ok := s.cache.Invalidate(k); ok {
			removed++
		}
	}
	return removed, nil
}

// Close drops every entry.
func (s *Store) Close(_ context.Context) error {
	s.cache.InvalidateAll()
	return nil
}
