package adapter

import (
	"context"
	"time"

	"jobboard-billing/internal/domain/model"
)

// IntentStatus is the provider-agnostic status of a payment intent.
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusSucceeded IntentStatus = "succeeded"
	IntentStatusFailed    IntentStatus = "failed"
)

// PaymentIntent is the minimal provider view of a charge intent.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	Amount       int64
	Currency     string
	ReceiptURL   string // empty until a charge exists
}

type CreateIntentRequest struct {
	Amount      int64
	Currency    model.Currency
	Description string
	Metadata    map[string]string
}

// ProviderSubscription is the minimal provider view of a subscription.
type ProviderSubscription struct {
	ID                 string
	Status             string // provider-native status string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
	ClientSecret       string // secret for completing the first payment
}

type CreateSubscriptionRequest struct {
	CustomerID      string
	PlanName        string
	Amount          int64 // minor units per month
	Currency        model.Currency
	PaymentMethodID string // optional
	Metadata        map[string]string
}

// ProviderRefund is the minimal provider view of an issued refund.
type ProviderRefund struct {
	ID     string
	Status string
	Amount int64
}

type RefundRequest struct {
	ExternalPaymentID string
	Amount            int64
	Reason            model.RefundReason
	Metadata          map[string]string
}

// Event is the verified webhook envelope. Raw carries the event's data.object
// JSON; handlers own its interpretation.
type Event struct {
	ID   string
	Type string
	Raw  []byte // data.object payload
	Full []byte // entire event JSON, for the audit log
}

// ProviderGateway is the hex port for the external payment provider.
// Implementations must not retry charge creation on their own; a failed
// creation call surfaces as an error so the caller decides.
type ProviderGateway interface {
	Name() string

	CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, externalID string) (*PaymentIntent, error)

	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (customerID string, err error)

	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*ProviderSubscription, error)
	// UpdateSubscription flags or clears cancel-at-period-end.
	UpdateSubscription(ctx context.Context, externalID string, cancelAtPeriodEnd bool) (*ProviderSubscription, error)
	// CancelSubscription cancels immediately.
	CancelSubscription(ctx context.Context, externalID string) (*ProviderSubscription, error)

	CreateRefund(ctx context.Context, req RefundRequest) (*ProviderRefund, error)

	// ConstructEvent verifies payload authenticity against the signature
	// header and returns the parsed envelope. Fails closed with
	// domain.ErrSignatureInvalid; nothing may be persisted before this check.
	ConstructEvent(payload []byte, signature string) (*Event, error)
}
