// Package services – funnel metrics
//
// Prometheus counters describing how users move through the intake funnel.
// Cardinality is bounded: the only labels are the fixed field/step names.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// sessionsStarted counts /start triggers, including mid-flow restarts.
	sessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_sessions_started_total",
		Help: "Total number of intake sessions started via the start trigger.",
	})

	// funnelReached counts arrivals at each conversation step.
	funnelReached = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_funnel_reached_total",
			Help: "Total arrivals at each step of the intake funnel.",
		},
		[]string{"step"},
	)

	// validationRejects counts re-prompts by the field that failed.
	validationRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_validation_rejects_total",
			Help: "Total inputs rejected by field validation.",
		},
		[]string{"field"},
	)

	// duplicatePhones counts phone submissions rejected by the dedup check.
	duplicatePhones = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_duplicate_phone_total",
		Help: "Total phone numbers rejected as already registered.",
	})

	// ledgerErrors counts failed ledger reads and appends.
	ledgerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_ledger_errors_total",
		Help: "Total ledger operations that failed.",
	})

	// leadsSaved counts successfully appended leads.
	leadsSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_leads_saved_total",
		Help: "Total leads appended to the ledger.",
	})
)

func init() {
	prometheus.MustRegister(
		sessionsStarted,
		funnelReached,
		validationRejects,
		duplicatePhones,
		ledgerErrors,
		leadsSaved,
	)
}
