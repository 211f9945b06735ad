package executor

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
)

// Options configures a Host (spec.md sec.4.5's execution is resource
// bounded: a cycle budget, plus whatever caches/observability the runtime
// wants).
type Options struct {
	// CycleBudget bounds total event-loop iterations; 0 means unbounded.
	CycleBudget uint64
	// ForeignAccountCacheSize bounds how many ForeignAccount lookups are
	// memoized per Host across transactions sharing it.
	ForeignAccountCacheSize int
	Logger                  *slog.Logger
	Registerer              prometheus.Registerer
}

// DefaultOptions returns the Host defaults used when the caller leaves
// Options zero-valued.
func DefaultOptions() Options {
	return Options{
		CycleBudget:             1 << 20,
		ForeignAccountCacheSize: 256,
		Logger:                  slog.Default(),
	}
}

type metrics struct {
	eventsHandled  prometheus.Counter
	cyclesUsed     prometheus.Counter
	foreignMisses  prometheus.Counter
	foreignHits    prometheus.Counter
	feesCollected  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		eventsHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernel_executor_events_handled_total",
			Help: "Number of host events handled by the executor.",
		}),
		cyclesUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernel_executor_cycles_used_total",
			Help: "Cumulative cycle budget consumed across executed transactions.",
		}),
		foreignMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernel_executor_foreign_account_cache_misses_total",
			Help: "ForeignAccount lookups that missed the in-Host cache.",
		}),
		foreignHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernel_executor_foreign_account_cache_hits_total",
			Help: "ForeignAccount lookups served from the in-Host cache.",
		}),
		feesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernel_executor_fees_collected_total",
			Help: "Verification fee amount deducted across executed transactions.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.eventsHandled, m.cyclesUsed, m.foreignMisses, m.foreignHits, m.feesCollected} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type foreignEntry struct {
	account *account.Account
	root    crypto.Word
}

type foreignCache = lru.Cache[account.Id, foreignEntry]
