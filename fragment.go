package fragcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	c "github.com/unkn0wn-root/fragcache/codec"
	"github.com/unkn0wn-root/fragcache/internal/keys"
	"github.com/unkn0wn-root/fragcache/internal/wire"
	"github.com/unkn0wn-root/fragcache/store"
)

const (
	defaultKeyPrefix = "views/"
	defaultMaxKeyLen = 250
)

type manager[D any] struct {
	store          store.Store
	codec          c.Codec[D]
	log            Logger
	hooks          Hooks
	prefix         string
	maxKeyLen      int
	canonicalize   func(Params) string
	defaultExpire  time.Duration
	enabled        func(ctx context.Context) bool
	computeSetCost SetCostFunc
}

func newManager[D any](opts Options[D]) (*manager[D], error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("fragcache: store is required")
	}
	if opts.DefaultExpire < 0 {
		return nil, fmt.Errorf("fragcache: negative default expiry %s", opts.DefaultExpire)
	}

	m := &manager[D]{
		store:         opts.Store,
		defaultExpire: opts.DefaultExpire,
	}

	// defaults
	m.codec = coalesce[c.Codec[D]](opts.Codec, c.Msgpack[D]{})
	m.log = coalesce[Logger](opts.Logger, NopLogger{})
	m.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	m.prefix = coalesce(opts.KeyPrefix, defaultKeyPrefix)
	m.maxKeyLen = coalesce(opts.MaxKeyLen, defaultMaxKeyLen)

	if opts.Canonicalize != nil {
		m.canonicalize = opts.Canonicalize
	} else {
		m.canonicalize = func(p Params) string { return keys.Canonical(p) }
	}

	switch {
	case opts.Enabled != nil:
		m.enabled = opts.Enabled
	case opts.Disabled:
		m.enabled = func(context.Context) bool { return false }
	default:
		m.enabled = func(context.Context) bool { return true }
	}

	if opts.ComputeSetCost != nil {
		m.computeSetCost = opts.ComputeSetCost
	} else {
		m.computeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}
	return m, nil
}

func (m *manager[D]) Enabled(ctx context.Context) bool { return m.enabled(ctx) }

func (m *manager[D]) Close(ctx context.Context) error {
	return m.store.Close(ctx)
}

// scope returns the bound scope or reports ScopeUnavailable.
func (m *manager[D]) scope(ctx context.Context, op string) (*Scope[D], bool) {
	s, ok := ScopeFrom[D](ctx)
	if !ok {
		m.hooks.ScopeUnavailable(op)
		m.log.Debug("no scope bound; skipping", Fields{"op": op})
	}
	return s, ok
}

func (m *manager[D]) storeFor(o callOptions) store.Store {
	if o.store != nil {
		return o.store
	}
	return m.store
}

func (m *manager[D]) Read(ctx context.Context, key any, opts ...Option) ([]byte, bool, error) {
	o, err := buildOptions(opRead, opts)
	if err != nil {
		return nil, false, err
	}
	if !m.enabled(ctx) {
		return nil, false, nil
	}
	k, blank, err := m.fragmentKey(key)
	if err != nil || blank {
		return nil, false, err
	}
	s, ok := m.scope(ctx, opRead)
	if !ok {
		return nil, false, nil
	}
	body, ok := m.read(ctx, s, k, o)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(body), true, nil
}

func (m *manager[D]) read(ctx context.Context, s *Scope[D], k string, o callOptions) ([]byte, bool) {
	if e, ok := s.Get(k); ok {
		m.hooks.LocalHit(k)
		return m.expose(s, e), true
	}

	e, ok := m.fetch(ctx, k, o)
	if !ok {
		m.hooks.Miss(k)
		return nil, false
	}
	s.Set(k, e)
	m.hooks.BackendHit(k)
	return m.expose(s, e), true
}

// expose publishes composite data through the scope and returns the body.
func (m *manager[D]) expose(s *Scope[D], e Entry[D]) []byte {
	if e.HasData {
		s.SetData(e.Data)
	}
	return e.Body
}

// fetch loads and decodes k from the store. Errors and undecodable bytes are
// reported and treated as a miss. In-process stores hand out their own
// memory, so the bytes are copied before anything keeps them.
func (m *manager[D]) fetch(ctx context.Context, k string, o callOptions) (Entry[D], bool) {
	st := m.storeFor(o)
	if o.commonKey != "" {
		return m.fetchFromGroup(ctx, st, k, o.commonKey)
	}

	raw, ok, err := st.Get(ctx, k)
	if err != nil {
		m.backendError("get", k, err)
		return Entry[D]{}, false
	}
	if !ok {
		return Entry[D]{}, false
	}
	raw = bytes.Clone(raw)
	if o.raw {
		return Entry[D]{Body: raw}, true
	}
	e, err := m.decodeEntry(k, raw)
	if err != nil {
		_ = st.Del(ctx, k) // self-heal corrupt
		return Entry[D]{}, false
	}
	return e, true
}

func (m *manager[D]) Write(ctx context.Context, key any, content []byte, opts ...Option) ([]byte, error) {
	o, err := buildOptions(opWrite, opts)
	if err != nil {
		return nil, err
	}
	if !m.enabled(ctx) {
		return content, nil
	}
	k, blank, err := m.fragmentKey(key)
	if err != nil {
		return nil, err
	}
	if blank {
		return content, nil
	}
	s, ok := m.scope(ctx, opWrite)
	if !ok {
		return content, nil
	}
	m.write(ctx, s, k, bytes.Clone(content), o)
	return content, nil
}

// write updates the scope first so the scope stays consistent with this call
// even when the store write fails. content must not be shared with the caller.
func (m *manager[D]) write(ctx context.Context, s *Scope[D], k string, content []byte, o callOptions) {
	e := Entry[D]{Body: content}
	if d, ok := s.Data(); ok && !o.raw {
		e.Data, e.HasData = d, true
	}
	s.Set(k, e)

	var raw []byte
	if o.raw {
		raw = content
	} else {
		enc, err := m.encodeEntry(k, e)
		if err != nil {
			return
		}
		raw = enc
	}

	ttl := m.defaultExpire
	if o.hasExpire && o.expire > 0 {
		ttl = o.expire
	}
	st := m.storeFor(o)
	if o.commonKey != "" {
		m.writeToGroup(ctx, st, k, o.commonKey, raw, ttl)
		return
	}
	m.set(ctx, st, k, raw, ttl)
}

func (m *manager[D]) set(ctx context.Context, st store.Store, k string, raw []byte, ttl time.Duration) {
	ok, err := st.Set(ctx, k, raw, m.computeSetCost(k, raw), ttl)
	if err != nil {
		m.backendError("set", k, err)
		return
	}
	if !ok {
		m.hooks.StoreSetRejected(k)
		m.log.Debug("write rejected by store (pressure)", Fields{"key": k})
	}
}

func (m *manager[D]) Expire(ctx context.Context, key any, opts ...Option) error {
	o, err := buildOptions(opExpire, opts)
	if err != nil {
		return err
	}
	if re, ok := key.(*regexp.Regexp); ok {
		if re == nil {
			return fmt.Errorf("%w: nil pattern", ErrInvalidKey)
		}
		if o.commonKey != "" {
			return invalidOptions(opExpire, "pattern keys cannot be combined with WithCommonKey")
		}
		if !m.enabled(ctx) {
			return nil
		}
		if _, ok := m.scope(ctx, opExpire); !ok {
			return nil
		}
		n, err := m.storeFor(o).DelMatching(ctx, re)
		if err != nil {
			m.backendError("del_matching", re.String(), err)
			return nil
		}
		m.log.Debug("expired matching fragments", Fields{"pattern": re.String(), "removed": n})
		return nil
	}

	if !m.enabled(ctx) {
		return nil
	}
	k, blank, err := m.fragmentKey(key)
	if err != nil || blank {
		return err
	}
	if _, ok := m.scope(ctx, opExpire); !ok {
		return nil
	}
	st := m.storeFor(o)
	if o.commonKey != "" {
		m.removeFromGroup(ctx, st, k, o.commonKey)
		return nil
	}
	if err := st.Del(ctx, k); err != nil {
		m.backendError("del", k, err)
		return nil
	}
	m.log.Debug("expired fragment", Fields{"key": k})
	return nil
}

func (m *manager[D]) backendError(op, key string, err error) {
	be := &BackendError{Op: op, Key: key, Err: err}
	m.hooks.BackendError(be)
	m.log.Warn("store call failed; degrading", Fields{"op": op, "key": key, "err": err})
}

func (m *manager[D]) decodeEntry(k string, raw []byte) (Entry[D], error) {
	we, err := wire.DecodeEntry(raw)
	if err != nil {
		m.hooks.EntryCorrupt(k, "entry_decode")
		m.log.Warn("corrupt fragment entry", Fields{"key": k, "err": err})
		return Entry[D]{}, err
	}
	e := Entry[D]{Body: we.Body}
	if we.Composite {
		d, err := m.codec.Decode(we.Data)
		if err != nil {
			m.hooks.EntryCorrupt(k, "data_decode")
			m.log.Warn("undecodable side-channel data", Fields{"key": k, "err": err})
			return Entry[D]{}, errors.Join(wire.ErrCorrupt, err)
		}
		e.Data, e.HasData = d, true
	}
	return e, nil
}

func (m *manager[D]) encodeEntry(k string, e Entry[D]) ([]byte, error) {
	if !e.HasData {
		return wire.EncodeEntry(wire.Entry{Body: e.Body}), nil
	}
	data, err := m.codec.Encode(e.Data)
	if err != nil {
		m.hooks.EntryCorrupt(k, "data_encode")
		m.log.Error("side-channel data encode failed; write kept local", Fields{"key": k, "err": err})
		return nil, err
	}
	return wire.EncodeEntry(wire.Entry{Body: e.Body, Data: data, Composite: true}), nil
}
