// Package storetest runs behavioral checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/unkn0wn-root/fragcache/store"
)

// Run checks the Store contract against stores built by newStore. Each
// subtest gets a fresh store, closed when the subtest ends.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	open := func(t *testing.T) (context.Context, store.Store) {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close(context.Background()) })
		return context.Background(), s
	}

	t.Run("GetMissing", func(t *testing.T) {
		ctx, s := open(t)
		v, ok, err := s.Get(ctx, "views/none")
		if err != nil || ok || v != nil {
			t.Fatalf("Get(missing) = %q, %v, %v", v, ok, err)
		}
	})

	t.Run("SetGetTransparent", func(t *testing.T) {
		ctx, s := open(t)
		want := []byte{0, 'F', 'R', 0xff, '\n'}
		mustSet(t, s, "views/a", want)
		got, ok, err := s.Get(ctx, "views/a")
		if err != nil || !ok {
			t.Fatalf("Get: ok=%v err=%v", ok, err)
		}
		if string(got) != string(want) {
			t.Fatalf("Get = %q, want %q", got, want)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		ctx, s := open(t)
		mustSet(t, s, "views/a", []byte("one"))
		mustSet(t, s, "views/a", []byte("two"))
		got, _, _ := s.Get(ctx, "views/a")
		if string(got) != "two" {
			t.Fatalf("Get after overwrite = %q", got)
		}
	})

	t.Run("GetMulti", func(t *testing.T) {
		ctx, s := open(t)
		mustSet(t, s, "views/a", []byte("A"))
		mustSet(t, s, "views/b", []byte("B"))
		got, err := s.GetMulti(ctx, "views/a", "views/b", "views/c")
		if err != nil {
			t.Fatalf("GetMulti: %v", err)
		}
		if len(got) != 2 || string(got["views/a"]) != "A" || string(got["views/b"]) != "B" {
			t.Fatalf("GetMulti = %v", got)
		}
		if _, ok := got["views/c"]; ok {
			t.Fatalf("missing key present in GetMulti result")
		}
	})

	t.Run("Del", func(t *testing.T) {
		ctx, s := open(t)
		mustSet(t, s, "views/a", []byte("A"))
		if err := s.Del(ctx, "views/a"); err != nil {
			t.Fatalf("Del: %v", err)
		}
		if _, ok, _ := s.Get(ctx, "views/a"); ok {
			t.Fatalf("key still present after Del")
		}
		if err := s.Del(ctx, "views/a"); err != nil {
			t.Fatalf("Del(missing) = %v, want nil", err)
		}
	})

	t.Run("DelMatching", func(t *testing.T) {
		ctx, s := open(t)
		for _, k := range []string{"views/posts/1", "views/posts/2", "views/users/1", "other/posts/1"} {
			mustSet(t, s, k, []byte(k))
		}
		n, err := s.DelMatching(ctx, regexp.MustCompile(`^views/posts/`))
		if err != nil {
			t.Fatalf("DelMatching: %v", err)
		}
		if n != 2 {
			t.Fatalf("DelMatching removed %d, want 2", n)
		}
		for k, want := range map[string]bool{
			"views/posts/1": false,
			"views/posts/2": false,
			"views/users/1": true,
			"other/posts/1": true,
		} {
			if _, ok, _ := s.Get(ctx, k); ok != want {
				t.Errorf("%s present=%v, want %v", k, ok, want)
			}
		}
	})
}

func mustSet(t *testing.T, s store.Store, key string, value []byte) {
	t.Helper()
	ok, err := s.Set(context.Background(), key, value, int64(len(value)), time.Minute)
	if err != nil || !ok {
		t.Fatalf("Set(%q): ok=%v err=%v", key, ok, err)
	}
}
