package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// tokensApplied counts tokens accumulated into chat statistics by kind
	// (input, output, total).
	tokensApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_tokens_applied_total",
			Help: "Tokens accumulated into chat statistics.",
		},
		[]string{"kind"},
	)

	// aiExchanges counts finished AI exchanges by outcome
	// (ok, failed, stale, busy).
	aiExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_ai_exchanges_total",
			Help: "AI exchanges by outcome.",
		},
		[]string{"outcome"},
	)

	// writeFailures counts writes rejected by the storage medium.
	writeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_store_write_failures_total",
			Help: "Writes rejected by the storage medium.",
		},
	)
)

func init() {
	prometheus.MustRegister(tokensApplied, aiExchanges, writeFailures)
}
