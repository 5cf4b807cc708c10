package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics records checkout, polling, and token-refresh activity.
type WorkflowMetrics struct {
	pollTicks      prometheus.Counter
	pollOutcomes   *prometheus.CounterVec
	pollDuration   *prometheus.HistogramVec
	tokenRefreshes *prometheus.CounterVec
	retriedCalls   *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	pollTicks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_poll_ticks",
		Help: "Payment status polls issued.",
	})
	pollOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_poll_outcomes",
		Help: "Terminal poller outcomes by result.",
	}, []string{"result"})
	pollDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_poll_duration_seconds",
		Help:    "Time from poll start to a terminal outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	tokenRefreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "service_token_refreshes",
		Help: "Service token exchanges by trigger.",
	}, []string{"trigger"})
	retriedCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_retried_requests",
		Help: "Backend requests retried after a token refresh.",
	}, []string{"endpoint"})
	reg.MustRegister(pollTicks, pollOutcomes, pollDuration, tokenRefreshes, retriedCalls)
	return &WorkflowMetrics{
		pollTicks:      pollTicks,
		pollOutcomes:   pollOutcomes,
		pollDuration:   pollDuration,
		tokenRefreshes: tokenRefreshes,
		retriedCalls:   retriedCalls,
	}
}

// IncPollTick increments the poll counter. Order ids stay in logs;
// labeling per order would grow the series without bound.
func (m *WorkflowMetrics) IncPollTick() {
	if m == nil || m.pollTicks == nil {
		return
	}
	m.pollTicks.Inc()
}

// ObservePollOutcome records a terminal poller result and its duration.
func (m *WorkflowMetrics) ObservePollOutcome(result string, duration time.Duration) {
	if m == nil || m.pollOutcomes == nil {
		return
	}
	m.pollOutcomes.WithLabelValues(normalizeLabel(result)).Inc()
	m.pollDuration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

// IncTokenRefresh counts one service-token exchange.
func (m *WorkflowMetrics) IncTokenRefresh(trigger string) {
	if m == nil || m.tokenRefreshes == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncRetriedRequest counts a request retried after refresh.
func (m *WorkflowMetrics) IncRetriedRequest(endpoint string) {
	if m == nil || m.retriedCalls == nil {
		return
	}
	m.retriedCalls.WithLabelValues(normalizeLabel(endpoint)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
