// Package prom exports fragcache events as Prometheus counters.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/fragcache"
)

// Hooks holds all Prometheus collectors for the fragment cache.
type Hooks struct {
	Lookups        *prometheus.CounterVec // result ∈ {local_hit, backend_hit, miss}
	BackendErrors  *prometheus.CounterVec // op
	CorruptEntries *prometheus.CounterVec // reason
	SetRejected    prometheus.Counter
	NoScope        *prometheus.CounterVec // op
}

var _ fragcache.Hooks = (*Hooks)(nil)

// New creates and registers all collectors with the given registerer.
// namespace "" => "fragcache".
func New(reg prometheus.Registerer, namespace string) *Hooks {
	if namespace == "" {
		namespace = "fragcache"
	}
	h := &Hooks{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Fragment lookups by result.",
		}, []string{"result"}),

		BackendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Failed store calls, by operation.",
		}, []string{"op"}),

		CorruptEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_entries_total",
			Help:      "Undecodable entries or groups, by reason.",
		}, []string{"reason"}),

		SetRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_set_rejected_total",
			Help:      "Writes rejected by the store under pressure.",
		}),

		NoScope: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scope_unavailable_total",
			Help:      "Operations run without a bound scope, by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		h.Lookups,
		h.BackendErrors,
		h.CorruptEntries,
		h.SetRejected,
		h.NoScope,
	)
	return h
}

func (h *Hooks) LocalHit(string)   { h.Lookups.WithLabelValues("local_hit").Inc() }
func (h *Hooks) BackendHit(string) { h.Lookups.WithLabelValues("backend_hit").Inc() }
func (h *Hooks) Miss(string)       { h.Lookups.WithLabelValues("miss").Inc() }

func (h *Hooks) BackendError(err *fragcache.BackendError) {
	op := "unknown"
	if err != nil {
		op = err.Op
	}
	h.BackendErrors.WithLabelValues(op).Inc()
}

func (h *Hooks) EntryCorrupt(_, reason string) { h.CorruptEntries.WithLabelValues(reason).Inc() }
func (h *Hooks) StoreSetRejected(string)       { h.SetRejected.Inc() }
func (h *Hooks) ScopeUnavailable(op string)    { h.NoScope.WithLabelValues(op).Inc() }
