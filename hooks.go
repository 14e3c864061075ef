package fragcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// Read served from the scope tier.
	LocalHit(storageKey string)
	// Read served from the store (scope tier populated).
	BackendHit(storageKey string)
	// Read found nothing in either tier.
	Miss(storageKey string)

	// A store call failed; the operation degraded to miss / local-only write.
	BackendError(err *BackendError)

	// A stored entry or group could not be decoded.
	// reason ∈ {"entry_decode", "group_decode", "data_decode", "data_encode"}
	EntryCorrupt(storageKey, reason string)

	// Store returned ok=false on Set (backpressure/eviction).
	StoreSetRejected(storageKey string)

	// An operation ran without a Scope bound to its context.
	// op ∈ {"read", "write", "expire", "fragment_for"}
	ScopeUnavailable(op string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) LocalHit(string)             {}
func (NopHooks) BackendHit(string)           {}
func (NopHooks) Miss(string)                 {}
func (NopHooks) BackendError(*BackendError)  {}
func (NopHooks) EntryCorrupt(string, string) {}
func (NopHooks) StoreSetRejected(string)     {}
func (NopHooks) ScopeUnavailable(string)     {}
