package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"   // intent created on provider side; awaiting confirmation
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED" // provider confirmed the charge
	PaymentStatusFailed    PaymentStatus = "FAILED"    // provider reported the charge failed
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"  // fully refunded after success
)

type PaymentType string

const (
	PaymentTypeJobPosting      PaymentType = "JOB_POSTING"
	PaymentTypeFeaturedListing PaymentType = "FEATURED_LISTING"
	PaymentTypePremiumListing  PaymentType = "PREMIUM_LISTING"
	PaymentTypeSubscription    PaymentType = "SUBSCRIPTION"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyJMD Currency = "JMD"
)

func ValidCurrency(c Currency) bool {
	return c == CurrencyUSD || c == CurrencyJMD
}

func ValidPaymentType(t PaymentType) bool {
	switch t {
	case PaymentTypeJobPosting, PaymentTypeFeaturedListing, PaymentTypePremiumListing, PaymentTypeSubscription:
		return true
	}
	return false
}

// Payment records one attempted charge against the external provider.
// Amounts are integer minor units (cents). One row per external payment id.
type Payment struct {
	ID                string        // UUID
	ExternalPaymentID string        // provider payment intent id (unique)
	UserID            string        // UUID
	Amount            int64         // minor units
	Currency          Currency
	PaymentType       PaymentType
	Status            PaymentStatus
	JobID             *string // set for job posting payments
	SubscriptionID    *string
	HeartShareAmount  *int64 // partner share computed at creation for qualifying types
	RefundedAmount    int64  // running total of issued refunds
	ReceiptURL        *string
	Description       string
	Metadata          map[string]interface{}
	CreatedAt         time.Time
	ProcessedAt       *time.Time
}

// CanTransition reports whether moving from the payment's current status to
// target is a legal state-machine move. PENDING -> {SUCCEEDED, FAILED},
// SUCCEEDED -> REFUNDED; everything else is illegal. Re-applying the current
// status is treated as legal so duplicate events stay no-ops.
func (p *Payment) CanTransition(target PaymentStatus) bool {
	if p.Status == target {
		return true
	}
	switch p.Status {
	case PaymentStatusPending:
		return target == PaymentStatusSucceeded || target == PaymentStatusFailed
	case PaymentStatusSucceeded:
		return target == PaymentStatusRefunded
	}
	return false
}

// Terminal reports whether no further status change except refund is possible.
func (p *Payment) Terminal() bool {
	return p.Status != PaymentStatusPending
}
