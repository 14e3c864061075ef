package fragcache

import (
	"time"

	"github.com/unkn0wn-root/fragcache/store"
)

// Option configures a single Read, Write, Expire or FragmentFor call.
type Option func(*callOptions)

type callOptions struct {
	expire    time.Duration
	hasExpire bool
	commonKey string
	raw       bool
	store     store.Store
	cond      *bool
	subs      Interpolation
}

// WithExpire sets the backend expiry of a write. Write and FragmentFor only.
func WithExpire(d time.Duration) Option {
	return func(o *callOptions) { o.expire, o.hasExpire = d, true }
}

// WithCommonKey stores the fragment as a sub-entry of the group's shared
// backend entry.
func WithCommonKey(group string) Option {
	return func(o *callOptions) { o.commonKey = group }
}

// Raw stores and reads the body bytes as-is: no framing, no side-channel data.
// Useful when other systems read the same backend keys.
func Raw() Option {
	return func(o *callOptions) { o.raw = true }
}

// WithStore overrides the backend for this call.
func WithStore(s store.Store) Option {
	return func(o *callOptions) { o.store = s }
}

// If gates caching for one FragmentFor call; false renders without caching.
func If(cond bool) Option {
	return func(o *callOptions) { o.cond = &cond }
}

// WithSubstitution appends one token substitution applied to the FragmentFor
// result.
func WithSubstitution(token string, value any) Option {
	return func(o *callOptions) { o.subs = append(o.subs, Substitution{Token: token, Value: value}) }
}

// WithInterpolation appends subs, in order, to the FragmentFor substitutions.
func WithInterpolation(subs Interpolation) Option {
	return func(o *callOptions) { o.subs = append(o.subs, subs...) }
}

const (
	opRead        = "read"
	opWrite       = "write"
	opExpire      = "expire"
	opFragmentFor = "fragment_for"
)

func buildOptions(op string, opts []Option) (callOptions, error) {
	var o callOptions
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	if op != opFragmentFor {
		if o.cond != nil {
			return o, invalidOptions(op, "If is only accepted by FragmentFor")
		}
		if len(o.subs) > 0 {
			return o, invalidOptions(op, "substitutions are only accepted by FragmentFor")
		}
	}
	if o.hasExpire && (op == opRead || op == opExpire) {
		return o, invalidOptions(op, "WithExpire is only accepted by writes")
	}
	if o.expire < 0 {
		return o, invalidOptions(op, "negative expiry %s", o.expire)
	}
	if o.raw && o.commonKey != "" {
		return o, invalidOptions(op, "Raw cannot be combined with WithCommonKey")
	}
	return o, nil
}
