package model

import "time"

// RevenueShare is the derived accounting record for the HEART partnership:
// a fixed-percentage split of a qualifying payment or subscription invoice.
// Immutable once created; SourceKey is unique so duplicate deliveries of the
// originating event cannot produce a second row.
type RevenueShare struct {
	ID             string // UUID
	SourceKey      string // payment id, or "subscription-<subID>-<invoiceID>" for invoices
	TotalAmount    int64
	HeartShare     int64
	PlatformShare  int64
	ReportingMonth string // YYYY-MM
	CreatedAt      time.Time
}

// SubscriptionShareKey builds the composite source key for a subscription
// invoice share, matching one invoice to exactly one share row.
func SubscriptionShareKey(subscriptionID, invoiceID string) string {
	return "subscription-" + subscriptionID + "-" + invoiceID
}

// ReportingMonth formats t as the YYYY-MM bucket shares are reported under.
func ReportingMonthOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}
