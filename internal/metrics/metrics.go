// Package metrics exposes optimizer progress as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hpfold/internal/search"
)

const namespace = "hpfold"

// Recorder holds the run collectors. Every collector is labelled by optimizer.
type Recorder struct {
	// Evaluations counts walk evaluations. Labels: optimizer, outcome (valid, invalid).
	Evaluations *prometheus.CounterVec

	Rounds *prometheus.CounterVec

	// Fallbacks counts steps that kept the prior population because selection came back empty.
	Fallbacks *prometheus.CounterVec

	RoundDuration *prometheus.HistogramVec

	BestScore *prometheus.GaugeVec

	PopulationSize *prometheus.GaugeVec
}

// NewRecorder registers the collectors on reg. A nil reg uses a fresh
// private registry, which keeps repeated construction in tests safe.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Recorder{
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "walk_evaluations_total",
			Help:      "Walk evaluations by outcome.",
		}, []string{"optimizer", "outcome"}),
		Rounds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Completed optimizer rounds.",
		}, []string{"optimizer"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_selection_fallbacks_total",
			Help:      "Rounds that kept the prior population after an empty selection.",
		}, []string{"optimizer"}),
		RoundDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Wall time of one optimizer round.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{"optimizer"}),
		BestScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_score",
			Help:      "Best contact score found so far.",
		}, []string{"optimizer"}),
		PopulationSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "population_size",
			Help:      "Walks held by the optimizer after the last round.",
		}, []string{"optimizer"}),
	}
}

// ObserveRound records one finished round.
func (r *Recorder) ObserveRound(optimizer string, stats search.Stats, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.Evaluations.WithLabelValues(optimizer, "valid").Add(float64(stats.Evaluations - stats.Invalid))
	r.Evaluations.WithLabelValues(optimizer, "invalid").Add(float64(stats.Invalid))
	r.Rounds.WithLabelValues(optimizer).Inc()
	if stats.FellBack {
		r.Fallbacks.WithLabelValues(optimizer).Inc()
	}
	r.RoundDuration.WithLabelValues(optimizer).Observe(elapsed.Seconds())
	r.BestScore.WithLabelValues(optimizer).Set(float64(stats.BestScore))
	r.PopulationSize.WithLabelValues(optimizer).Set(float64(stats.Population))
}

// WriteTextfile dumps everything gathered by g in the Prometheus text format,
// for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
