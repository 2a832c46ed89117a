// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EligibilityChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_checks_total",
			Help: "Total number of eligibility evaluations by outcome",
		},
		[]string{"outcome"},
	)

	LoansCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loans_created_total",
			Help: "Total number of loans originated",
		},
	)

	CustomersRegisteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "customers_registered_total",
			Help: "Total number of customers registered",
		},
	)

	CreditScoreDistribution = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "credit_score",
			Help:    "Distribution of computed credit scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"route", "method", "status"},
	)
)

// Eligibility outcomes recorded on EligibilityChecksTotal.
const (
	OutcomeApproved      = "approved"
	OutcomeOverutilized  = "overutilized"
	OutcomeEMIBurden     = "emi_burden"
	OutcomeLowScore      = "low_score"
	OutcomeLowRateInBand = "rate_below_floor"
)
