package model

import "time"

// WebhookEvent is the audit/idempotency record of one received provider event.
// ExternalEventID is unique; a redelivered event id maps onto the existing row.
type WebhookEvent struct {
	ID              string // UUID
	ExternalEventID string // provider event id (unique)
	EventType       string
	Payload         []byte // raw event JSON as delivered
	Processed       bool
	ProcessedAt     *time.Time
	ProcessingError *string
	CreatedAt       time.Time
}
