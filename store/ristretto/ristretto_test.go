package ristretto

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/unkn0wn-root/fragcache/store"
	"github.com/unkn0wn-root/fragcache/store/storetest"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64, Metrics: true})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newStore(t) })
}

func TestNewRejectsZeroConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for zero config")
	}
}

func TestMetricsExposed(t *testing.T) {
	s := newStore(t)
	defer s.Close(context.Background())

	ctx := context.Background()
	_, _ = s.Set(ctx, "views/a", []byte("a"), 1, 0)
	_, _, _ = s.Get(ctx, "views/a")
	if m := s.Metrics(); m == nil || m.Hits() == 0 {
		t.Fatalf("expected hit metrics, got %v", m)
	}
}

func indexLen(s *Store) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func TestIndexDropsExpiredKeys(t *testing.T) {
	s := newStore(t)
	defer s.Close(context.Background())
	ctx := context.Background()

	_, _ = s.Set(ctx, "views/short", []byte("a"), 1, 10*time.Millisecond)
	_, _ = s.Set(ctx, "views/long", []byte("b"), 1, time.Hour)
	time.Sleep(30 * time.Millisecond)

	n, err := s.DelMatching(ctx, regexp.MustCompile(`^other/`))
	if err != nil || n != 0 {
		t.Fatalf("DelMatching = %d, %v", n, err)
	}
	s.mu.Lock()
	_, short := s.index["views/short"]
	_, long := s.index["views/long"]
	s.mu.Unlock()
	if short || !long {
		t.Fatalf("index short=%v long=%v", short, long)
	}
}

func TestIndexPrunedByWrites(t *testing.T) {
	s := newStore(t)
	defer s.Close(context.Background())
	ctx := context.Background()

	_, _ = s.Set(ctx, "views/gone", []byte("a"), 1, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	for i := 0; i < 2*pruneEvery; i++ {
		_, _ = s.Set(ctx, "views/same", []byte("b"), 1, 0)
	}
	if got := indexLen(s); got != 1 {
		t.Fatalf("index len = %d, want 1", got)
	}
}
