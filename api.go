package fragcache

import (
	"context"
	"io"
	"time"

	c "github.com/unkn0wn-root/fragcache/codec"
	"github.com/unkn0wn-root/fragcache/store"
)

type SetCostFunc func(key string, raw []byte) int64

// RenderFunc produces fresh fragment content into w. It is only invoked on a
// cache miss (or when caching is bypassed).
type RenderFunc func(w io.Writer) error

// Params is a structured key descriptor (e.g. routing parameters). It is
// canonicalized to a stable string before any cache operation.
type Params map[string]string

// Fragments is the fragment cache API. D is the type of the side-channel data
// that may travel alongside a cached body; serialization of D is handled by a
// pluggable Codec[D].
//
// Every operation needs a *Scope[D] bound to ctx (see WithScope). Without one
// the operation is a no-op.
type Fragments[D any] interface {
	// Enabled reports whether caching is on for ctx.
	Enabled(ctx context.Context) bool
	Close(context.Context) error

	// Read returns the cached body for key. A composite entry exposes its
	// side-channel data through Scope.Data. The returned body is owned by
	// the caller.
	Read(ctx context.Context, key any, opts ...Option) (body []byte, ok bool, err error)
	// Write stores content in the scope and the backend and returns content.
	// If the scope carries side-channel data, a composite entry is stored.
	// content is copied; later changes to it are not cached.
	Write(ctx context.Context, key any, content []byte, opts ...Option) ([]byte, error)
	// Expire deletes key from the backend. A *regexp.Regexp key deletes every
	// matching physical key.
	Expire(ctx context.Context, key any, opts ...Option) error

	// FragmentFor returns the interpolated fragment for key, rendering and
	// caching it on a miss.
	FragmentFor(ctx context.Context, key any, render RenderFunc, opts ...Option) ([]byte, error)
	// AppendFragment is FragmentFor appending its result to dst.
	AppendFragment(ctx context.Context, dst []byte, key any, render RenderFunc, opts ...Option) ([]byte, error)
}

// Options tune the behavior of the fragment cache.
// Only Store is required; others have sensible defaults.
type Options[D any] struct {
	// Required
	Store store.Store

	Codec          c.Codec[D]                     // side-channel codec; nil => Msgpack
	KeyPrefix      string                         // physical key prefix; "" => "views/"
	MaxKeyLen      int                            // longer derived keys are hashed; 0 => 250
	Canonicalize   func(Params) string            // nil => sorted k=v pairs joined by '&'
	Logger         Logger                         // if nil, NopLogger is used
	Hooks          Hooks                          // if nil, NopHooks is used
	DefaultExpire  time.Duration                  // used when a write has no expiry; 0 => never
	Disabled       bool                           // default false (enabled)
	Enabled        func(ctx context.Context) bool // feature flag; overrides Disabled when set
	ComputeSetCost SetCostFunc                    // default len(raw)
}

func New[D any](opts Options[D]) (Fragments[D], error) {
	return newManager[D](opts)
}
