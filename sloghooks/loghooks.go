package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/fragcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery  uint64 // local and backend hits
	MissEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ fragcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) LocalHit(storageKey string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("fragcache.local_hit", "key", h.redact(storageKey))
}

func (h *Hooks) BackendHit(storageKey string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("fragcache.backend_hit", "key", h.redact(storageKey))
}

func (h *Hooks) Miss(storageKey string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("fragcache.miss", "key", h.redact(storageKey))
}

func (h *Hooks) BackendError(err *fragcache.BackendError) {
	if h.l == nil || err == nil {
		return
	}
	h.l.Warn("fragcache.backend_error",
		"op", err.Op,
		"key", h.redact(err.Key),
		"err", err.Err)
}

func (h *Hooks) EntryCorrupt(storageKey, reason string) {
	if h.l == nil {
		return
	}
	h.l.Warn("fragcache.entry_corrupt",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) StoreSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("fragcache.store_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) ScopeUnavailable(op string) {
	if h.l == nil {
		return
	}
	h.l.Info("fragcache.scope_unavailable",
		"op", op,
		"msg", "operation ran without a scope bound to its context")
}
