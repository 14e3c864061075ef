package fragcache

import (
	"bytes"
	"context"
	"errors"
)

var errNilRender = errors.New("fragcache: nil render func")

// FragmentFor returns the fragment for key with the call's substitutions
// applied. The cached bytes are always the raw render; substitutions run on
// every call so one cached body can be personalized per request.
//
// Caching is bypassed (render + interpolate only) when caching is disabled,
// If(false) is given, the key is blank, or no Scope is bound to ctx.
// The returned slice is owned by the caller.
func (m *manager[D]) FragmentFor(ctx context.Context, key any, render RenderFunc, opts ...Option) ([]byte, error) {
	o, err := buildOptions(opFragmentFor, opts)
	if err != nil {
		return nil, err
	}
	if render == nil {
		return nil, errNilRender
	}
	if !m.enabled(ctx) || (o.cond != nil && !*o.cond) {
		return renderOnly(render, o.subs)
	}
	k, blank, err := m.fragmentKey(key)
	if err != nil {
		return nil, err
	}
	if blank {
		return renderOnly(render, o.subs)
	}
	s, ok := m.scope(ctx, opFragmentFor)
	if !ok {
		return renderOnly(render, o.subs)
	}

	if body, ok := m.read(ctx, s, k, o); ok {
		return Interpolate(bytes.Clone(body), o.subs), nil
	}

	fresh, err := renderFresh(render)
	if err != nil {
		return nil, err
	}
	m.write(ctx, s, k, bytes.Clone(fresh), o)
	return Interpolate(fresh, o.subs), nil
}

func (m *manager[D]) AppendFragment(ctx context.Context, dst []byte, key any, render RenderFunc, opts ...Option) ([]byte, error) {
	frag, err := m.FragmentFor(ctx, key, render, opts...)
	if err != nil {
		return dst, err
	}
	return append(dst, frag...), nil
}

// renderFresh captures exactly the output of one render call.
func renderFresh(render RenderFunc) ([]byte, error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderOnly(render RenderFunc, subs Interpolation) ([]byte, error) {
	fresh, err := renderFresh(render)
	if err != nil {
		return nil, err
	}
	return Interpolate(fresh, subs), nil
}
