package fragcache

import "context"

// Entry is a fragment as held by the scope tier. HasData marks a composite
// entry whose side-channel Data travels with Body.
type Entry[D any] struct {
	Body    []byte
	Data    D
	HasData bool
}

// Scope is the request-scoped local tier: last-known entries per physical key
// plus the side-channel data slot. It is not safe for concurrent use; bind one
// Scope per unit of work (one request) and Clear it at the boundary.
type Scope[D any] struct {
	entries map[string]Entry[D]
	data    D
	hasData bool
}

func NewScope[D any]() *Scope[D] {
	return &Scope[D]{entries: make(map[string]Entry[D])}
}

func (s *Scope[D]) Get(key string) (Entry[D], bool) {
	e, ok := s.entries[key]
	return e, ok
}

func (s *Scope[D]) Set(key string, e Entry[D]) {
	if s.entries == nil {
		s.entries = make(map[string]Entry[D])
	}
	s.entries[key] = e
}

func (s *Scope[D]) Len() int { return len(s.entries) }

// Clear drops every entry and the side-channel data. Idempotent.
func (s *Scope[D]) Clear() {
	clear(s.entries)
	s.ResetData()
}

// Data returns the side-channel data set explicitly or exposed by the last
// composite read.
func (s *Scope[D]) Data() (D, bool) { return s.data, s.hasData }

// SetData sets the side-channel data; subsequent writes in this scope store
// composite entries.
func (s *Scope[D]) SetData(d D) { s.data, s.hasData = d, true }

func (s *Scope[D]) ResetData() {
	var zero D
	s.data, s.hasData = zero, false
}

type scopeKey struct{}

// WithScope binds s to ctx.
func WithScope[D any](ctx context.Context, s *Scope[D]) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the Scope bound to ctx. A scope bound with a different D
// is reported as absent.
func ScopeFrom[D any](ctx context.Context) (*Scope[D], bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeKey{}).(*Scope[D])
	return s, ok && s != nil
}
