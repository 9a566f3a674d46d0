// Package metrics exports prover activity as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gnoswap-labs/kprove/internal/executor"
)

const namespace = "kprove"

// Collector counts rewrite steps, pruned branches, terminals and proofs.
// It implements prove.Observer and is safe for concurrent use.
type Collector struct {
	Steps         *prometheus.CounterVec
	Pruned        prometheus.Counter
	Terminals     *prometheus.CounterVec
	Proofs        *prometheus.CounterVec
	ProofDuration prometheus.Histogram
}

// New registers the collectors with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		Steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewrite_steps_total",
			Help:      "Rewrite steps taken, by rule label.",
		}, []string{"rule"}),
		Pruned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_branches_total",
			Help:      "Branches dropped because their path condition is infeasible.",
		}),
		Terminals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terminal_states_total",
			Help:      "Terminal states reached, by status.",
		}, []string{"status"}),
		Proofs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proofs_total",
			Help:      "Finished proofs, by outcome.",
		}, []string{"outcome"}),
		ProofDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proof_duration_seconds",
			Help:      "Wall time of a proof.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		}),
	}
}

func (c *Collector) StepTaken(rule string) {
	c.Steps.WithLabelValues(rule).Inc()
}

func (c *Collector) BranchPruned() {
	c.Pruned.Inc()
}

func (c *Collector) TerminalReached(status executor.Status) {
	c.Terminals.WithLabelValues(status.String()).Inc()
}

func (c *Collector) ProofFinished(proved bool, elapsed time.Duration) {
	outcome := "unproved"
	if proved {
		outcome = "proved"
	}
	c.Proofs.WithLabelValues(outcome).Inc()
	c.ProofDuration.Observe(elapsed.Seconds())
}
