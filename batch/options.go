package batch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Options bounds one batch's shape (spec.md sec.6's per-batch caps, carried
// here as an overridable policy struct rather than package constants so a
// caller can tune them per deployment).
type Options struct {
	MaxTransactions int
	MaxInputNotes   int
	MaxOutputNotes  int
	MaxAccounts     int
	Logger          *slog.Logger
	Registerer      prometheus.Registerer
}

// DefaultOptions returns the caps used when a caller leaves Options
// zero-valued.
func DefaultOptions() Options {
	return Options{
		MaxTransactions: 64,
		MaxInputNotes:   2048,
		MaxOutputNotes:  2048,
		MaxAccounts:     64,
		Logger:          slog.Default(),
	}
}

type metrics struct {
	batchesAssembled   prometheus.Counter
	transactionsPacked prometheus.Counter
	notesErased        prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		batchesAssembled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernel_batch_assembled_total",
			Help: "Number of batches successfully assembled.",
		}),
		transactionsPacked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernel_batch_transactions_packed_total",
			Help: "Cumulative transactions packed into assembled batches.",
		}),
		notesErased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernel_batch_unauthenticated_notes_deferred_total",
			Help: "Unauthenticated input notes deferred to block-level resolution.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.batchesAssembled, m.transactionsPacked, m.notesErased} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
