package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/fragcache"
)

func TestSlogLoggerStableAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelDebug})
	l := New(stdslog.New(h))

	l.Info("expired matching fragments", fragcache.Fields{"removed": 3, "pattern": "^views/posts"})

	out := buf.String()
	if !strings.Contains(out, "msg=\"expired matching fragments\"") {
		t.Fatalf("message missing: %s", out)
	}
	ip := strings.Index(out, "fragcache.pattern=")
	ir := strings.Index(out, "fragcache.removed=3")
	if ip < 0 || ir < 0 || ip > ir {
		t.Fatalf("attrs missing or unsorted: %s", out)
	}
}

func TestSlogLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelWarn})
	l := New(stdslog.New(h))

	l.Debug("hidden", nil)
	l.Info("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}
	l.Error("shown", nil)
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("error not logged: %q", buf.String())
	}
}
