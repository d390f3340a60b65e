package model

import "time"

type RefundReason string

const (
	RefundReasonDuplicate         RefundReason = "duplicate"
	RefundReasonFraudulent        RefundReason = "fraudulent"
	RefundReasonCustomerRequested RefundReason = "requested_by_customer"
)

func ValidRefundReason(r RefundReason) bool {
	switch r {
	case RefundReasonDuplicate, RefundReasonFraudulent, RefundReasonCustomerRequested:
		return true
	}
	return false
}

// Refund represents one refund issued against a succeeded Payment.
// The sum of refund amounts for a payment never exceeds the payment amount;
// the running total lives on Payment.RefundedAmount.
type Refund struct {
	ID               string // UUID
	PaymentID        string // -> Payment
	ExternalRefundID string // provider refund id
	Amount           int64  // minor units
	Currency         Currency
	Reason           RefundReason
	Status           string  // provider status, stored verbatim
	ProcessedBy      *string // admin/actor id, nil for system
	Notes            *string
	CreatedAt        time.Time
}
