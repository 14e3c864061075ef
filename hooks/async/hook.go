// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/fragcache"
//	"github.com/unkn0wn-root/fragcache/hooks/async"
//	"github.com/unkn0wn-root/fragcache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    HitEvery:  100, // sample logs: ~every 100th hit
//	    MissEvery: 10,
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	frags, _ := fragcache.New[Meta](fragcache.Options[Meta]{
//	    Store: st,
//	    Hooks: hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/fragcache"
)

type Hooks struct {
	inner   fragcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ fragcache.Hooks = (*Hooks)(nil)

func New(inner fragcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events raised after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full
// or the hooks were closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) LocalHit(k string)   { h.try(func() { h.inner.LocalHit(k) }) }
func (h *Hooks) BackendHit(k string) { h.try(func() { h.inner.BackendHit(k) }) }
func (h *Hooks) Miss(k string)       { h.try(func() { h.inner.Miss(k) }) }
func (h *Hooks) BackendError(err *fragcache.BackendError) {
	h.try(func() { h.inner.BackendError(err) })
}
func (h *Hooks) EntryCorrupt(k, r string) { h.try(func() { h.inner.EntryCorrupt(k, r) }) }
func (h *Hooks) StoreSetRejected(k string) {
	h.try(func() { h.inner.StoreSetRejected(k) })
}
func (h *Hooks) ScopeUnavailable(op string) { h.try(func() { h.inner.ScopeUnavailable(op) }) }
