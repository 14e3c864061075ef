package fragcache

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned for key values that cannot address a fragment
	// (unsupported type, or a pattern passed to Read/Write).
	ErrInvalidKey = errors.New("fragcache: invalid key")
	// ErrInvalidOptions is returned for option combinations an operation does
	// not accept.
	ErrInvalidOptions = errors.New("fragcache: invalid options")
	// ErrScopeUnavailable means no Scope is bound to the context. Operations
	// never return it; it is reported to Hooks and the Logger only.
	ErrScopeUnavailable = errors.New("fragcache: no scope bound to context")
)

// BackendError describes a failed store call. The cache swallows it (reads
// become misses, writes stay local) and hands it to Hooks.BackendError.
type BackendError struct {
	Op  string // "get", "get_multi", "set", "del", "del_matching"
	Key string // physical key or pattern
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("fragcache: store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func invalidOptions(op, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidOptions, op, fmt.Sprintf(format, args...))
}
