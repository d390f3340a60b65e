package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/ports/adapter"
)

// NoopGateway is an in-memory stand-in for the real provider. It fabricates
// ids and client secrets and never leaves the process. Used in dev mode so
// the service runs without provider credentials.
type NoopGateway struct {
	seq uint64
}

// Compile-time check
var _ adapter.ProviderGateway = (*NoopGateway)(nil)

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) next(prefix string) string {
	return fmt.Sprintf("%s_noop_%d", prefix, atomic.AddUint64(&g.seq, 1))
}

func (g *NoopGateway) CreatePaymentIntent(_ context.Context, req adapter.CreateIntentRequest) (*adapter.PaymentIntent, error) {
	id := g.next("pi")
	return &adapter.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       adapter.IntentStatusPending,
		Amount:       req.Amount,
		Currency:     string(req.Currency),
	}, nil
}

func (g *NoopGateway) RetrievePaymentIntent(_ context.Context, externalID string) (*adapter.PaymentIntent, error) {
	return &adapter.PaymentIntent{
		ID:           externalID,
		ClientSecret: externalID + "_secret",
		Status:       adapter.IntentStatusSucceeded,
	}, nil
}

func (g *NoopGateway) CreateCustomer(_ context.Context, _, _ string, _ map[string]string) (string, error) {
	return g.next("cus"), nil
}

func (g *NoopGateway) CreateSubscription(_ context.Context, req adapter.CreateSubscriptionRequest) (*adapter.ProviderSubscription, error) {
	now := time.Now()
	id := g.next("sub")
	return &adapter.ProviderSubscription{
		ID:                 id,
		Status:             "incomplete",
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		ClientSecret:       id + "_secret",
	}, nil
}

func (g *NoopGateway) UpdateSubscription(_ context.Context, externalID string, cancelAtPeriodEnd bool) (*adapter.ProviderSubscription, error) {
	now := time.Now()
	return &adapter.ProviderSubscription{
		ID:                 externalID,
		Status:             "active",
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		CancelAtPeriodEnd:  cancelAtPeriodEnd,
	}, nil
}

func (g *NoopGateway) CancelSubscription(_ context.Context, externalID string) (*adapter.ProviderSubscription, error) {
	now := time.Now()
	return &adapter.ProviderSubscription{
		ID:         externalID,
		Status:     "canceled",
		CanceledAt: &now,
	}, nil
}

func (g *NoopGateway) CreateRefund(_ context.Context, req adapter.RefundRequest) (*adapter.ProviderRefund, error) {
	return &adapter.ProviderRefund{
		ID:     g.next("re"),
		Status: "succeeded",
		Amount: req.Amount,
	}, nil
}

// ConstructEvent accepts any payload without signature verification. The
// payload must still be a well-formed event envelope.
func (g *NoopGateway) ConstructEvent(payload []byte, _ string) (*adapter.Event, error) {
	var env struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil || env.ID == "" || env.Type == "" {
		return nil, domain.ErrSignatureInvalid
	}
	return &adapter.Event{ID: env.ID, Type: env.Type, Raw: env.Data.Object, Full: payload}, nil
}
