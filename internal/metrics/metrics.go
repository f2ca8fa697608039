// Package metrics holds the Prometheus collectors for tool calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes.
const (
	OutcomeOK               = "ok"
	OutcomeUnknownTool      = "unknown_tool"
	OutcomeInvalidArguments = "invalid_arguments"
	OutcomeFailed           = "failed"
)

// Tool names are bounded by the catalog; unknown names are folded into this
// label to keep cardinality fixed.
const unknownToolLabel = "_unknown"

// DefaultDurationBuckets span quick local calls up to long video polls.
var DefaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 1800}

type ToolMetrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewToolMetrics registers the collectors against reg. Use
// prometheus.NewRegistry() in tests.
func NewToolMetrics(reg prometheus.Registerer) *ToolMetrics {
	factory := promauto.With(reg)
	return &ToolMetrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_tool_calls_total",
			Help: "Tool calls by tool and outcome",
		}, []string{"tool", "outcome"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcp_tool_call_duration_seconds",
			Help:    "Tool call duration in seconds",
			Buckets: DefaultDurationBuckets,
		}, []string{"tool"}),
	}
}

// Record counts one call. A nil receiver is a no-op.
func (m *ToolMetrics) Record(tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if outcome == OutcomeUnknownTool {
		tool = unknownToolLabel
	}
	m.Calls.WithLabelValues(tool, outcome).Inc()
	m.Duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
