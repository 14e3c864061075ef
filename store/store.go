// Package store defines the backend abstraction used by fragcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation). If a store performs internal transforms
// (e.g., compression), they MUST be fully reversed so that the bytes returned by
// Get are identical to the bytes provided to Set.
//
// Keys under the fragcache KeyPrefix (default "views/") are owned by fragcache.
// Foreign writes under that prefix may be treated as corrupt entries and deleted.
package store

import (
	"context"
	"regexp"
	"time"
)

// Store is a minimal byte store with TTLs.
// Must be safe for concurrent use: one Store is shared by every scope.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// GetMulti returns the found subset of keys. Missing keys are simply absent
	// from the result.
	GetMulti(ctx context.Context, keys ...string) (map[string][]byte, error)

	// Set stores value with the given TTL (<= 0 means no expiry). May ignore
	// cost if unsupported. Returns ok=false when the store rejected the write
	// under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort). Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// DelMatching removes every key matched by pattern and reports how many
	// keys were removed.
	DelMatching(ctx context.Context, pattern *regexp.Regexp) (int, error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// GetEach implements GetMulti on top of Get for stores without a native
// multi-get. It stops at the first error.
func GetEach(ctx context.Context, s interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
}, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, ok, err := s.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}
