package model

import "time"

// Invoice mirrors a provider subscription invoice. Upserted by external
// invoice id, so webhook redelivery updates in place instead of duplicating.
type Invoice struct {
	ID                string // UUID
	ExternalInvoiceID string // provider invoice id (unique)
	UserID            string
	SubscriptionID    *string // local subscription id
	InvoiceNumber     string
	Amount            int64 // amount due, minor units
	Currency          Currency
	Status            string // provider status, stored verbatim
	TaxAmount         *int64
	IssueDate         time.Time
	DueDate           time.Time
	PaidAt            *time.Time
	HostedInvoiceURL  *string
	InvoicePDF        *string
}
