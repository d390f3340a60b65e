package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsTotal,
		revenueShareTotal,
		revenueShareFailures,
	)
}

var (
	subscriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_total",
			Help: "Subscription lifecycle events by resulting status.",
		},
		[]string{"status"},
	)

	revenueShareTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revenue_share_total",
			Help: "Minor-unit amounts recorded for revenue sharing, labeled by party.",
		},
		[]string{"party"}, // 'heart', 'platform'
	)

	revenueShareFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "revenue_share_failures_total",
			Help: "Revenue share rows that could not be written.",
		},
	)
)

func IncSubscription(status string) {
	subscriptionsTotal.WithLabelValues(norm(status)).Inc()
}

func AddRevenueShare(heart, platform int64) {
	revenueShareTotal.WithLabelValues("heart").Add(float64(heart))
	revenueShareTotal.WithLabelValues("platform").Add(float64(platform))
}

func IncRevenueShareFailure() {
	revenueShareFailures.Inc()
}
