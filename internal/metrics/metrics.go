// Package metrics exposes Prometheus counters for the delivery and
// rate-limit paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/haulmatch/go-push-service/pkg/push"
)

const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeSimulated = "simulated"
)

var (
	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "push_deliveries_total",
		Help: "Push delivery attempts by outcome.",
	}, []string{"outcome"})

	subscriptionsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "push_subscriptions_removed_total",
		Help: "Subscriptions deleted after the push service reported them gone.",
	})

	rateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_decisions_total",
		Help: "Rate limiter admissions and denials.",
	}, []string{"decision"})
)

// ObserveDelivery records one delivery result.
func ObserveDelivery(r push.DeliveryResult) {
	switch {
	case r.Simulated:
		deliveries.WithLabelValues(OutcomeSimulated).Inc()
	case r.Success:
		deliveries.WithLabelValues(OutcomeDelivered).Inc()
	default:
		deliveries.WithLabelValues(OutcomeFailed).Inc()
	}
}

func ObserveSubscriptionRemoved() {
	subscriptionsRemoved.Inc()
}

func ObserveRateLimitDecision(allowed bool) {
	if allowed {
		rateLimitDecisions.WithLabelValues("allowed").Inc()
	} else {
		rateLimitDecisions.WithLabelValues("denied").Inc()
	}
}
