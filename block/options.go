package block

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Options bounds and configures one Assembler (spec.md sec.4.8).
type Options struct {
	MaxBatches int
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// DefaultOptions returns the caps this module uses when a caller does not
// specify its own (spec.md leaves the numeric cap unspecified; see
// DESIGN.md's Open Question entry for block).
func DefaultOptions() Options {
	return Options{
		MaxBatches: 16,
		Logger:     slog.Default(),
	}
}

type metrics struct {
	blocksAssembled    prometheus.Counter
	batchesPacked      prometheus.Counter
	notesErased        prometheus.Counter
	accountsUpdated    prometheus.Counter
	nullifiersRecorded prometheus.Counter
}

// newMetrics builds a metrics set and, if reg is non-nil, registers it.
// reg == nil returns working no-op collectors that are simply never
// exported (mirrors executor.newMetrics and batch.newMetrics).
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	mx := &metrics{
		blocksAssembled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kernel",
			Subsystem: "block",
			Name:      "blocks_assembled_total",
			Help:      "Number of blocks successfully assembled.",
		}),
		batchesPacked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kernel",
			Subsystem: "block",
			Name:      "batches_packed_total",
			Help:      "Number of batches folded into an assembled block.",
		}),
		notesErased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kernel",
			Subsystem: "block",
			Name:      "notes_erased_total",
			Help:      "Number of unauthenticated/output note pairs erased as same-block consume-and-produce.",
		}),
		accountsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kernel",
			Subsystem: "block",
			Name:      "accounts_updated_total",
			Help:      "Number of distinct accounts updated across assembled blocks.",
		}),
		nullifiersRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kernel",
			Subsystem: "block",
			Name:      "nullifiers_recorded_total",
			Help:      "Number of nullifiers written into the nullifier tree.",
		}),
	}
	if reg == nil {
		return mx, nil
	}
	for _, c := range []prometheus.Collector{
		mx.blocksAssembled, mx.batchesPacked, mx.notesErased, mx.accountsUpdated, mx.nullifiersRecorded,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return mx, nil
}
