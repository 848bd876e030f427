package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the assistant
type Metrics struct {
	// Message flow
	MessagesHandled *prometheus.CounterVec // by outcome: handled, ignored, error
	Triggers        prometheus.Counter
	Intents         *prometheus.CounterVec // by intent

	// External generative calls
	LLMCalls        prometheus.Counter
	LLMErrors       *prometheus.CounterVec // by error category
	LLMCallLatency  prometheus.Histogram
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	GovernorRefused prometheus.Counter // daily-quota refusals
}

// InitMetrics registers the metrics on the default registry
func InitMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics registers the metrics on the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "peanut_messages_total",
			Help: "Total inbound messages by outcome",
		}, []string{"outcome"}),

		Triggers: factory.NewCounter(prometheus.CounterOpts{
			Name: "peanut_triggers_total",
			Help: "Total messages detected as assistant-directed",
		}),

		Intents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "peanut_intents_total",
			Help: "Total classified intents by type",
		}, []string{"intent"}),

		LLMCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "peanut_llm_calls_total",
			Help: "Total generative service calls attempted",
		}),

		LLMErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "peanut_llm_errors_total",
			Help: "Total generative service errors by category",
		}, []string{"category"}),

		LLMCallLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "peanut_llm_call_duration_seconds",
			Help:    "Generative call latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "peanut_cache_hits_total",
			Help: "Response cache hits",
		}),

		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "peanut_cache_misses_total",
			Help: "Response cache misses",
		}),

		GovernorRefused: factory.NewCounter(prometheus.CounterOpts{
			Name: "peanut_governor_daily_refusals_total",
			Help: "Calls refused by the hard daily ceiling",
		}),
	}
}
