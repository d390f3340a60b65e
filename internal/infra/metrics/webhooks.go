package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookEventsTotal,
		notificationFailures,
	)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries by event type and outcome.",
		},
		[]string{"event_type", "outcome"}, // outcome: processed/failed/duplicate/unhandled/...
	)

	notificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Fire-and-forget notifications that could not be delivered.",
		},
		[]string{"kind"},
	)
)

func IncWebhook(eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(norm(eventType), norm(outcome)).Inc()
}

func IncNotificationFailure(kind string) {
	notificationFailures.WithLabelValues(norm(kind)).Inc()
}
