// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ahjo_dispatch_requests_total",
			Help: "Total number of outbound case system requests by outcome",
		},
		[]string{"request_type", "outcome"},
	)

	DispatchCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ahjo_dispatch_cycle_duration_seconds",
			Help: "Duration of a dispatch cycle per request type",
		},
		[]string{"request_type"},
	)

	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_callbacks_total",
			Help: "Total number of inbound callbacks by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ahjo_token_refresh_total",
			Help: "Total number of token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	EligibleApplications = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ahjo_eligible_applications",
			Help: "Number of applications selected in the latest cycle per request type",
		},
		[]string{"request_type"},
	)
)
