package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/fragcache"
)

func TestZapLoggerWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Warn("store call failed; degrading", fragcache.Fields{
		"op":  "get",
		"key": "views/sidebar",
		"err": errors.New("dial tcp: refused"),
	})
	l.Debug("no scope bound; skipping", nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel || e.LoggerName != "fragcache" {
		t.Fatalf("unexpected entry level=%v name=%q", e.Level, e.LoggerName)
	}
	ctx := e.ContextMap()
	if ctx["key"] != "views/sidebar" || ctx["op"] != "get" {
		t.Fatalf("missing fields: %v", ctx)
	}
	if ctx["err"] != "dial tcp: refused" {
		t.Fatalf("error field not rendered as string: %#v", ctx["err"])
	}
	if len(entries[1].Context) != 0 {
		t.Fatalf("nil fields should produce no context, got %v", entries[1].Context)
	}
}
