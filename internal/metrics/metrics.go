package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "datachat_build_info",
		Help: "Build information of datachat",
	}, []string{"version"})

	Turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datachat_turns_total", Help: "Inbound messages by how they were dispatched.",
	}, []string{"kind"})

	GenerationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datachat_generation_outcomes_total", Help: "Code generation calls by result.",
	}, []string{"result"})
	ExecutionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datachat_execution_outcomes_total", Help: "Sandbox executions by outcome.",
	}, []string{"outcome"})
	AnalysisOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datachat_analysis_outcomes_total", Help: "Secondary analysis calls by result.",
	}, []string{"result"})

	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "datachat_execution_duration_seconds",
		Help:    "Wall-clock time spent executing generated code.",
		Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
	})

	PersistErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datachat_history_persist_errors_total", Help: "Conversation store writes that failed.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "datachat_active_sessions", Help: "HTTP sessions currently held in memory.",
	})
)
