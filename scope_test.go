package fragcache

import (
	"context"
	"testing"
)

func TestScopeClearIdempotent(t *testing.T) {
	s := NewScope[page]()
	s.Set("views/a", Entry[page]{Body: []byte("a")})
	s.SetData(page{Title: "t"})

	s.Clear()
	s.Clear()

	if s.Len() != 0 {
		t.Fatalf("Len = %d after Clear", s.Len())
	}
	if _, ok := s.Data(); ok {
		t.Fatal("data survived Clear")
	}
	if _, ok := s.Get("views/a"); ok {
		t.Fatal("entry survived Clear")
	}
}

func TestScopeZeroValueUsable(t *testing.T) {
	var s Scope[page]
	s.Clear()
	s.Set("views/a", Entry[page]{Body: []byte("a")})
	if e, ok := s.Get("views/a"); !ok || string(e.Body) != "a" {
		t.Fatalf("Get = %+v, %v", e, ok)
	}
}

func TestScopeData(t *testing.T) {
	s := NewScope[page]()
	if _, ok := s.Data(); ok {
		t.Fatal("fresh scope has data")
	}
	s.SetData(page{Title: "x"})
	if d, ok := s.Data(); !ok || d.Title != "x" {
		t.Fatalf("Data = %+v, %v", d, ok)
	}
	s.ResetData()
	if _, ok := s.Data(); ok {
		t.Fatal("ResetData kept data")
	}
}

func TestScopeFrom(t *testing.T) {
	if _, ok := ScopeFrom[page](context.Background()); ok {
		t.Fatal("scope found in bare context")
	}
	if _, ok := ScopeFrom[page](nil); ok {
		t.Fatal("scope found in nil context")
	}
	var nilScope *Scope[page]
	if _, ok := ScopeFrom[page](WithScope(context.Background(), nilScope)); ok {
		t.Fatal("nil scope reported as bound")
	}

	s := NewScope[page]()
	ctx := WithScope(context.Background(), s)
	got, ok := ScopeFrom[page](ctx)
	if !ok || got != s {
		t.Fatal("bound scope not returned")
	}
	if _, ok := ScopeFrom[string](ctx); ok {
		t.Fatal("scope returned for a different data type")
	}
}
