package fragcache

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/unkn0wn-root/fragcache/internal/wire"
)

// counting returns a RenderFunc writing body and a pointer to its call count.
func counting(body string) (RenderFunc, *int) {
	n := 0
	return func(w io.Writer) error {
		n++
		_, err := io.WriteString(w, body)
		return err
	}, &n
}

func TestFragmentForRendersOnceAndInterpolates(t *testing.T) {
	fx := newFixture(t, nil)
	render, calls := counting("Hi __NAME__, you have __N__ messages")

	ctx, _ := request()
	out, err := fx.f.FragmentFor(ctx, "greeting", render,
		WithSubstitution("__NAME__", "Ann"), WithSubstitution("__N__", 3))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "Hi Ann, you have 3 messages" {
		t.Fatalf("miss result = %q", out)
	}

	// the cached body keeps the tokens
	raw, _ := fx.st.raw("views/greeting")
	e, err := wire.DecodeEntry(raw)
	if err != nil || string(e.Body) != "Hi __NAME__, you have __N__ messages" {
		t.Fatalf("stored body = %q, %v", e.Body, err)
	}

	ctx2, _ := request()
	out, err = fx.f.FragmentFor(ctx2, "greeting", render,
		WithInterpolation(Interpolation{{Token: "__NAME__", Value: "Bob"}, {Token: "__N__", Value: 0}}))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "Hi Bob, you have 0 messages" {
		t.Fatalf("hit result = %q", out)
	}
	if *calls != 1 {
		t.Fatalf("render called %d times, want 1", *calls)
	}
}

func TestFragmentForLocalHit(t *testing.T) {
	fx := newFixture(t, nil)
	render, calls := counting("sidebar")
	ctx, _ := request()

	for i := 0; i < 3; i++ {
		out, err := fx.f.FragmentFor(ctx, "sidebar", render)
		if err != nil || string(out) != "sidebar" {
			t.Fatalf("FragmentFor = %q, %v", out, err)
		}
	}
	if *calls != 1 || fx.st.gets != 1 || fx.st.sets != 1 {
		t.Fatalf("calls=%d gets=%d sets=%d", *calls, fx.st.gets, fx.st.sets)
	}
}

func TestFragmentForResultIsOwned(t *testing.T) {
	fx := newFixture(t, nil)
	render, _ := counting("abc")
	ctx, _ := request()

	out, _ := fx.f.FragmentFor(ctx, "k", render)
	out[0] = 'X'
	again, _ := fx.f.FragmentFor(ctx, "k", render)
	if string(again) != "abc" {
		t.Fatalf("caller mutation leaked into the cache: %q", again)
	}
	again[1] = 'Y'
	body, _, _ := fx.f.Read(ctx, "k")
	if string(body) != "abc" {
		t.Fatalf("cached body = %q", body)
	}
}

func TestFragmentForBypass(t *testing.T) {
	cases := []struct {
		name string
		fx   func(t *testing.T) *fixture
		ctx  func() context.Context
		key  any
		opts []Option
	}{
		{"If(false)", func(t *testing.T) *fixture { return newFixture(t, nil) }, func() context.Context { c, _ := request(); return c }, "k", []Option{If(false)}},
		{"blank key", func(t *testing.T) *fixture { return newFixture(t, nil) }, func() context.Context { c, _ := request(); return c }, "", nil},
		{"no scope", func(t *testing.T) *fixture { return newFixture(t, nil) }, context.Background, "k", nil},
		{"disabled", func(t *testing.T) *fixture {
			return newFixture(t, func(o *Options[page]) { o.Disabled = true })
		}, func() context.Context { c, _ := request(); return c }, "k", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := tc.fx(t)
			render, calls := counting("v=__V__")
			ctx := tc.ctx()
			for i := 0; i < 2; i++ {
				opts := append([]Option{WithSubstitution("__V__", i)}, tc.opts...)
				out, err := fx.f.FragmentFor(ctx, tc.key, render, opts...)
				if err != nil {
					t.Fatal(err)
				}
				if want := "v=" + string(rune('0'+i)); string(out) != want {
					t.Fatalf("out = %q, want %q", out, want)
				}
			}
			if *calls != 2 {
				t.Fatalf("render calls = %d, want 2", *calls)
			}
			if fx.st.sets+fx.st.gets != 0 {
				t.Fatalf("bypass touched the store: sets=%d gets=%d", fx.st.sets, fx.st.gets)
			}
		})
	}
}

func TestFragmentForIfTrueCaches(t *testing.T) {
	fx := newFixture(t, nil)
	render, calls := counting("x")
	ctx, _ := request()
	_, _ = fx.f.FragmentFor(ctx, "k", render, If(true))
	_, _ = fx.f.FragmentFor(ctx, "k", render, If(true))
	if *calls != 1 {
		t.Fatalf("render calls = %d, want 1", *calls)
	}
}

func TestFragmentForRenderError(t *testing.T) {
	fx := newFixture(t, nil)
	boom := errors.New("template failed")
	ctx, s := request()

	_, err := fx.f.FragmentFor(ctx, "k", func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if fx.st.sets != 0 || s.Len() != 0 {
		t.Fatal("failed render was cached")
	}
}

func TestFragmentForNilRender(t *testing.T) {
	fx := newFixture(t, nil)
	ctx, _ := request()
	if _, err := fx.f.FragmentFor(ctx, "k", nil); err == nil {
		t.Fatal("expected error for nil render")
	}
}

func TestFragmentForWithCommonKey(t *testing.T) {
	fx := newFixture(t, nil)
	ctx, _ := request()
	render, calls := counting("row")

	for _, k := range []string{"row/1", "row/2"} {
		if _, err := fx.f.FragmentFor(ctx, k, render, WithCommonKey("rows")); err != nil {
			t.Fatal(err)
		}
	}
	ctx2, _ := request()
	for _, k := range []string{"row/1", "row/2"} {
		if out, _ := fx.f.FragmentFor(ctx2, k, render, WithCommonKey("rows")); string(out) != "row" {
			t.Fatalf("out = %q", out)
		}
	}
	if *calls != 2 {
		t.Fatalf("render calls = %d, want 2", *calls)
	}
	if len(fx.st.m) != 1 {
		t.Fatalf("expected one group entry, got %v", fx.st.m)
	}
}

func TestAppendFragment(t *testing.T) {
	fx := newFixture(t, nil)
	ctx, _ := request()
	render, _ := counting("<li>__I__</li>")

	dst := []byte("<ul>")
	var err error
	for i := 1; i <= 2; i++ {
		dst, err = fx.f.AppendFragment(ctx, dst, "item", render, WithSubstitution("__I__", i))
		if err != nil {
			t.Fatal(err)
		}
	}
	dst = append(dst, "</ul>"...)
	if string(dst) != "<ul><li>1</li><li>2</li></ul>" {
		t.Fatalf("dst = %q", dst)
	}

	failing := func(io.Writer) error { return errors.New("x") }
	out, err := fx.f.AppendFragment(ctx, []byte("keep"), "other", failing)
	if err == nil || string(out) != "keep" {
		t.Fatalf("AppendFragment on error = %q, %v", out, err)
	}
}
