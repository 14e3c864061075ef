package bigcache

import (
	"context"
	"errors"
	"regexp"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/fragcache/store"
)

type Store struct {
	c *bc.BigCache
}

var _ store.Store = (*Store)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Store, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	return b, err == nil, err
}

func (s *Store) GetMulti(ctx context.Context, keys ...string) (map[string][]byte, error) {
	return store.GetEach(ctx, s, keys)
}

func (s *Store) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	// BigCache does not support per-entry TTL; uses global LifeWindow.
	return true, s.c.Set(key, value)
}

func (s *Store) Del(_ context.Context, key string) error {
	if err := s.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

// DelMatching iterates over a snapshot of the shards. Keys written while the
// walk is in progress may be missed.
func (s *Store) DelMatching(ctx context.Context, pattern *regexp.Regexp) (int, error) {
	var keys []string
	it := s.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			return 0, err
		}
		if k := e.Key(); pattern.MatchString(k) {
			keys = append(keys, k)
		}
	}
	removed := 0
	for _, k := range keys {
		if err := s.Del(ctx, k); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *Store) Close(_ context.Context) error {
	return s.c.Close()
}
