// Package metrics holds the Prometheus collectors of the server. They are
// registered with the default registry and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mediashare"

// Registration outcomes.
const (
	OutcomeCreated     = "created"
	OutcomeRejected    = "rejected"
	OutcomeFailed      = "failed"
	OutcomeCompensated = "compensated"
)

// Compensation results.
const (
	ResultDeleted = "deleted"
	ResultFailed  = "failed"
)

var (
	// RegistrationsTotal counts finished registration attempts by outcome.
	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts by outcome",
	}, []string{"outcome"})

	// CompensationsTotal counts best-effort deletions of uploaded assets.
	CompensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "asset_compensations_total",
		Help:      "Total number of compensating asset deletions by result",
	}, []string{"result"})

	// RefreshRejectionsTotal counts refused token refreshes by reason.
	RefreshRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_rejections_total",
		Help:      "Total number of rejected refresh attempts by reason",
	}, []string{"reason"})

	// LoginsTotal counts login attempts by result.
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts by result",
	}, []string{"result"})
)
