// Package metrics holds the Prometheus counters for menu operations.
// All methods are safe on a nil *Metrics so callers can leave metrics off.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cafeteria"

// Metrics groups the cafeteria counters on one registry.
type Metrics struct {
	reg *prometheus.Registry

	Feedback          prometheus.Counter
	Rollouts          *prometheus.CounterVec
	RolledOutItems    prometheus.Counter
	Votes             *prometheus.CounterVec
	Finalizations     *prometheus.CounterVec
	FinalItems        prometheus.Counter
	DiscardRuns       *prometheus.CounterVec
	DiscardCandidates prometheus.Counter
	Recommendations   *prometheus.CounterVec
}

// New creates the counters on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		Feedback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Total number of feedback entries recorded.",
		}),
		Rollouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollouts_total",
			Help:      "Total number of rollout attempts, by result.",
		}, []string{"result"}),
		RolledOutItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rolled_out_items_total",
			Help:      "Total number of items placed on a voting menu.",
		}),
		Votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Total number of votes processed, by result.",
		}, []string{"result"}),
		Finalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalizations_total",
			Help:      "Total number of finalization attempts, by result.",
		}, []string{"result"}),
		FinalItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "final_items_total",
			Help:      "Total number of items written to a final menu.",
		}),
		DiscardRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discard_runs_total",
			Help:      "Total number of discard curation runs, by result.",
		}, []string{"result"}),
		DiscardCandidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discard_candidates_total",
			Help:      "Total number of items flagged for discard.",
		}),
		Recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Total number of recommendation requests, by meal slot.",
		}, []string{"slot"}),
	}

	reg.MustRegister(
		m.Feedback,
		m.Rollouts,
		m.RolledOutItems,
		m.Votes,
		m.Finalizations,
		m.FinalItems,
		m.DiscardRuns,
		m.DiscardCandidates,
		m.Recommendations,
	)
	return m
}

// Registry exposes the underlying registry for scraping or tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// WriteTextfile dumps all counters in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}

func (m *Metrics) FeedbackRecorded() {
	if m == nil {
		return
	}
	m.Feedback.Inc()
}

func (m *Metrics) RolloutAttempt(result string, items int) {
	if m == nil {
		return
	}
	m.Rollouts.WithLabelValues(result).Inc()
	m.RolledOutItems.Add(float64(items))
}

func (m *Metrics) VoteProcessed(result string) {
	if m == nil {
		return
	}
	m.Votes.WithLabelValues(result).Inc()
}

func (m *Metrics) FinalizeAttempt(result string, items int) {
	if m == nil {
		return
	}
	m.Finalizations.WithLabelValues(result).Inc()
	m.FinalItems.Add(float64(items))
}

func (m *Metrics) DiscardRun(result string, candidates int) {
	if m == nil {
		return
	}
	m.DiscardRuns.WithLabelValues(result).Inc()
	m.DiscardCandidates.Add(float64(candidates))
}

func (m *Metrics) Recommended(slot string) {
	if m == nil {
		return
	}
	m.Recommendations.WithLabelValues(slot).Inc()
}
