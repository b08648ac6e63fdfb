// Package metrics holds the Prometheus collectors of the relay and small
// helpers to update them. Collectors live on package level and are
// registered once with MustRegister.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gptrelay"

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register queues collectors for MustRegister. Called from init.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers all collectors with reg exactly once.
// A nil reg means the default Prometheus registry.
func MustRegister(reg prometheus.Registerer) {
	once.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(collectors...)
	})
}

func init() {
	register(
		updatesTotal,
		completionsTotal,
		completionLatency,
		completionTokens,
		repliesTotal,
		inFlightUpdates,
	)
}

var (
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates received, by dispatch route.",
		},
		[]string{"route"},
	)

	completionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Chat completion calls by model and outcome.",
		},
		[]string{"model", "outcome"},
	)

	completionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Chat completion call latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"model"},
	)

	completionTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_tokens_total",
			Help:      "Tokens reported by the completion endpoint, by model and kind (prompt/completion).",
		},
		[]string{"model", "kind"},
	)

	repliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Messages sent back to Telegram, by kind and result.",
		},
		[]string{"kind", "result"},
	)

	inFlightUpdates = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "updates_in_flight",
			Help:      "Updates currently being handled.",
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// UpdateRouted counts an update handed to the given route.
func UpdateRouted(route string) {
	updatesTotal.WithLabelValues(norm(route)).Inc()
}

// ObserveCompletion records one completion call. outcome is "success" or an error code.
func ObserveCompletion(model, outcome string, d time.Duration) {
	completionsTotal.WithLabelValues(norm(model), norm(outcome)).Inc()
	completionLatency.WithLabelValues(norm(model)).Observe(d.Seconds())
}

// AddTokenUsage adds token counts reported by the endpoint.
func AddTokenUsage(model string, promptTokens, outputTokens int) {
	m := norm(model)
	if promptTokens > 0 {
		completionTokens.WithLabelValues(m, "prompt").Add(float64(promptTokens))
	}
	if outputTokens > 0 {
		completionTokens.WithLabelValues(m, "completion").Add(float64(outputTokens))
	}
}

// ReplySent counts a message sent to a chat. kind is e.g. "completion", "greeting", "failure".
func ReplySent(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	repliesTotal.WithLabelValues(norm(kind), result).Inc()
}

// UpdateStarted and UpdateFinished track the number of in-flight update tasks.
func UpdateStarted()  { inFlightUpdates.Inc() }
func UpdateFinished() { inFlightUpdates.Dec() }
