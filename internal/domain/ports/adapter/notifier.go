package adapter

import "context"

// Notification kinds emitted by the billing core.
const (
	NotifyPaymentConfirmed     = "payment_confirmed"
	NotifyPaymentFailed        = "payment_failed"
	NotifySubscriptionPastDue  = "subscription_past_due"
	NotifySubscriptionCanceled = "subscription_canceled"
	NotifyDisputeOpened        = "dispute_opened"
)

// Notifier dispatches fire-and-forget user notifications. Errors are for the
// caller's observability only and must never fail the operation that
// triggered the notification.
type Notifier interface {
	Notify(ctx context.Context, userID, kind string, payload map[string]interface{}) error
}
