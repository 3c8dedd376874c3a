package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the agent service.
type Metrics struct {
	// RunsTotal counts kernel runs by terminal outcome (text, input_request,
	// error, cancelled).
	RunsTotal *prometheus.CounterVec

	// RunIterations observes loop iterations per run.
	RunIterations prometheus.Histogram

	// ToolInvocations counts tool executions by tool name and outcome.
	ToolInvocations *prometheus.CounterVec

	// ToolDuration observes tool execution latency by tool name.
	ToolDuration *prometheus.HistogramVec

	// CreditsDeducted counts credits charged, by tool name.
	CreditsDeducted *prometheus.CounterVec

	// Suspensions counts HITL suspensions by input kind.
	Suspensions *prometheus.CounterVec
}

// NewMetrics creates and registers the agent metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adpilot",
			Name:      "runs_total",
			Help:      "Kernel runs by terminal outcome.",
		}, []string{"outcome"}),
		RunIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "adpilot",
			Name:      "run_iterations",
			Help:      "Loop iterations per kernel run.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		ToolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adpilot",
			Name:      "tool_invocations_total",
			Help:      "Tool executions by tool and outcome.",
		}, []string{"tool", "outcome"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "adpilot",
			Name:      "tool_duration_seconds",
			Help:      "Tool execution latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"tool"}),
		CreditsDeducted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adpilot",
			Name:      "credits_deducted_total",
			Help:      "Credits charged per tool.",
		}, []string{"tool"}),
		Suspensions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adpilot",
			Name:      "hitl_suspensions_total",
			Help:      "Human-in-the-loop suspensions by input kind.",
		}, []string{"kind"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RunsTotal,
			m.RunIterations,
			m.ToolInvocations,
			m.ToolDuration,
			m.CreditsDeducted,
			m.Suspensions,
		)
	}
	return m
}
