package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssistantMetrics exposes counters/histograms for the assistant's tool
// dispatch flow.
type AssistantMetrics struct {
	operationsTotal  *prometheus.CounterVec
	moderationTotal  *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalai",
			Subsystem: "dispatch",
			Name:      "operations_total",
			Help:      "Total dispatched tool operations",
		}, []string{"operation", "status"}),
		moderationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalai",
			Subsystem: "moderation",
			Name:      "flags_total",
			Help:      "Total moderation flags by outcome",
		}, []string{"status"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dentalai",
			Subsystem: "dispatch",
			Name:      "operation_latency_seconds",
			Help:      "Latency of tool operation handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.moderationTotal, m.operationLatency)
	return m
}

func (m *AssistantMetrics) ObserveOperation(operation, status string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

func (m *AssistantMetrics) ObserveModeration(status string) {
	if m == nil {
		return
	}
	m.moderationTotal.WithLabelValues(status).Inc()
}

func (m *AssistantMetrics) ObserveOperationLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.operationLatency.WithLabelValues(operation).Observe(seconds)
}
