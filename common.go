package fragcache

import (
	"bytes"
	"context"
	"time"

	"github.com/unkn0wn-root/fragcache/internal/wire"
	"github.com/unkn0wn-root/fragcache/store"
)

// loadGroup fetches and decodes the group blob. ok=false means the store call
// failed; a missing or corrupt blob yields an empty group with ok=true.
// The blob is copied so decoded payloads never alias store memory.
func (m *manager[D]) loadGroup(ctx context.Context, st store.Store, gk string) (wire.Group, bool) {
	found, err := st.GetMulti(ctx, gk)
	if err != nil {
		m.backendError("get_multi", gk, err)
		return wire.Group{}, false
	}
	raw, ok := found[gk]
	if !ok {
		return wire.Group{}, true
	}
	g, err := wire.DecodeGroup(bytes.Clone(raw))
	if err != nil {
		m.hooks.EntryCorrupt(gk, "group_decode")
		m.log.Warn("corrupt common-key group; starting fresh", Fields{"group": gk, "err": err})
		return wire.Group{}, true
	}
	return g, true
}

// fetchFromGroup treats "group absent", "group expired" and "group lacks k"
// the same: miss.
func (m *manager[D]) fetchFromGroup(ctx context.Context, st store.Store, k, group string) (Entry[D], bool) {
	g, ok := m.loadGroup(ctx, st, m.groupKey(group))
	if !ok || g.Expired(time.Now()) {
		return Entry[D]{}, false
	}
	payload, ok := wire.Lookup(g.Items, k)
	if !ok {
		return Entry[D]{}, false
	}
	e, err := m.decodeEntry(k, payload)
	if err != nil {
		return Entry[D]{}, false
	}
	return e, true
}

// writeToGroup merges k into the group blob. If the blob cannot be read the
// store write is skipped so sibling entries are not clobbered.
// The group takes the deadline of its latest write.
func (m *manager[D]) writeToGroup(ctx context.Context, st store.Store, k, group string, payload []byte, ttl time.Duration) {
	gk := m.groupKey(group)
	g, ok := m.loadGroup(ctx, st, gk)
	if !ok {
		return
	}
	now := time.Now()
	if g.Expired(now) {
		g.Items = nil
	}
	g.Items = wire.Upsert(g.Items, k, payload)
	g.ExpiresAt = 0
	if ttl > 0 {
		g.ExpiresAt = now.Add(ttl).UnixNano()
	}
	m.saveGroup(ctx, st, gk, g, ttl)
}

// removeFromGroup drops k and re-saves the survivors with the group's
// remaining lifetime.
func (m *manager[D]) removeFromGroup(ctx context.Context, st store.Store, k, group string) {
	gk := m.groupKey(group)
	g, ok := m.loadGroup(ctx, st, gk)
	if !ok {
		return
	}
	now := time.Now()
	if g.Expired(now) {
		m.delGroup(ctx, st, gk)
		return
	}
	items, removed := wire.Remove(g.Items, k)
	if !removed {
		return
	}
	if len(items) == 0 {
		m.delGroup(ctx, st, gk)
		return
	}
	g.Items = items
	m.saveGroup(ctx, st, gk, g, g.TTL(now))
}

func (m *manager[D]) delGroup(ctx context.Context, st store.Store, gk string) {
	if err := st.Del(ctx, gk); err != nil {
		m.backendError("del", gk, err)
	}
}

func (m *manager[D]) saveGroup(ctx context.Context, st store.Store, gk string, g wire.Group, ttl time.Duration) {
	blob, err := wire.EncodeGroup(g)
	if err != nil {
		m.log.Error("encode common-key group failed", Fields{"group": gk, "err": err})
		return
	}
	m.set(ctx, st, gk, blob, ttl)
}
