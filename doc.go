// Package fragcache implements a two-tier fragment cache: a request-scoped
// local tier in front of a shared, slower backend store. Checking a fragment
// and then rendering it within one request costs at most one backend round
// trip.
//
// Components:
//   - store.Store: backend byte store with TTL (Redis, BigCache, Ristretto, Otter).
//   - Scope[D]: per-request local tier plus a side-channel data slot. Bound to a
//     context with WithScope; cleared at the request boundary (see httpscope).
//   - Codec[D]: (de)serializes side-channel data D stored next to a body.
//   - Interpolate: token substitution applied on every FragmentFor call, hit or miss.
//
// Keys:
//
//	<prefix><key>                 - single fragments (prefix defaults to "views/")
//	<prefix>_/group/<common key>  - several fragments sharing one backend entry
//	<prefix>_/h:<hash>            - fragment keys longer than MaxKeyLen
//	<prefix>_/gh:<hash>           - common keys longer than MaxKeyLen
//
// Fragment keys starting with "_/" are rejected with ErrInvalidKey.
//
// Usage:
//
//	ctx = fragcache.WithScope(ctx, fragcache.NewScope[Meta]())
//	html, err := frags.FragmentFor(ctx, "sidebar", renderSidebar,
//	    fragcache.WithExpire(10*time.Minute),
//	    fragcache.WithSubstitution("__USER__", user.Name))
package fragcache
