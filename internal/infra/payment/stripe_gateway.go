package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/ports/adapter"
)

// Ensure compile-time conformance
var _ adapter.ProviderGateway = (*StripeGateway)(nil)

// StripeGateway implements adapter.ProviderGateway against the Stripe API.
type StripeGateway struct {
	client        *stripe.Client
	webhookSecret string
	log           *zerolog.Logger
}

func NewStripeGateway(secretKey, webhookSecret string, logger *zerolog.Logger) *StripeGateway {
	return &StripeGateway{
		client:        stripe.NewClient(secretKey, nil),
		webhookSecret: webhookSecret,
		log:           logger,
	}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req adapter.CreateIntentRequest) (*adapter.PaymentIntent, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(strings.ToLower(string(req.Currency))),
		Description: stripe.String(req.Description),
		Metadata:    req.Metadata,
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}

	pi, err := g.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		g.log.Error().Err(err).Int64("amount", req.Amount).Msg("stripe payment intent creation failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return toAdapterIntent(pi), nil
}

func (g *StripeGateway) RetrievePaymentIntent(ctx context.Context, externalID string) (*adapter.PaymentIntent, error) {
	params := &stripe.PaymentIntentRetrieveParams{}
	params.AddExpand("latest_charge")

	pi, err := g.client.V1PaymentIntents.Retrieve(ctx, externalID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return toAdapterIntent(pi), nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	params := &stripe.CustomerCreateParams{
		Email:    stripe.String(email),
		Name:     stripe.String(name),
		Metadata: metadata,
	}
	c, err := g.client.V1Customers.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return c.ID, nil
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, req adapter.CreateSubscriptionRequest) (*adapter.ProviderSubscription, error) {
	// Subscription price data references a product id, so the plan product is
	// created first. Stripe dedupes nothing here; one product per subscribe
	// call is the price of not pre-provisioning a catalog.
	product, err := g.client.V1Products.Create(ctx, &stripe.ProductCreateParams{
		Name: stripe.String(req.PlanName),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	params := &stripe.SubscriptionCreateParams{
		Customer: stripe.String(req.CustomerID),
		Items: []*stripe.SubscriptionCreateItemParams{
			{
				PriceData: &stripe.SubscriptionCreateItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(string(req.Currency))),
					Product:    stripe.String(product.ID),
					UnitAmount: stripe.Int64(req.Amount),
					Recurring: &stripe.SubscriptionCreateItemPriceDataRecurringParams{
						Interval: stripe.String("month"),
					},
				},
			},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionCreatePaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
		Metadata: req.Metadata,
	}
	if req.PaymentMethodID != "" {
		params.DefaultPaymentMethod = stripe.String(req.PaymentMethodID)
	}
	params.AddExpand("latest_invoice.confirmation_secret")

	sub, err := g.client.V1Subscriptions.Create(ctx, params)
	if err != nil {
		g.log.Error().Err(err).Str("customer_id", req.CustomerID).Msg("stripe subscription creation failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return toAdapterSubscription(sub), nil
}

func (g *StripeGateway) UpdateSubscription(ctx context.Context, externalID string, cancelAtPeriodEnd bool) (*adapter.ProviderSubscription, error) {
	params := &stripe.SubscriptionUpdateParams{
		CancelAtPeriodEnd: stripe.Bool(cancelAtPeriodEnd),
	}
	sub, err := g.client.V1Subscriptions.Update(ctx, externalID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return toAdapterSubscription(sub), nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, externalID string) (*adapter.ProviderSubscription, error) {
	sub, err := g.client.V1Subscriptions.Cancel(ctx, externalID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return toAdapterSubscription(sub), nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, req adapter.RefundRequest) (*adapter.ProviderRefund, error) {
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(req.ExternalPaymentID),
		Reason:        stripe.String(string(req.Reason)),
		Metadata:      req.Metadata,
	}
	if req.Amount > 0 {
		params.Amount = stripe.Int64(req.Amount)
	}
	rf, err := g.client.V1Refunds.Create(ctx, params)
	if err != nil {
		g.log.Error().Err(err).Str("external_payment_id", req.ExternalPaymentID).Msg("stripe refund failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return &adapter.ProviderRefund{
		ID:     rf.ID,
		Status: string(rf.Status),
		Amount: rf.Amount,
	}, nil
}

func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (*adapter.Event, error) {
	// Webhook payloads are pinned to the account's API version, which may lag
	// this SDK. The mismatch is tolerated; handlers parse what they need.
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		g.log.Warn().Err(err).Msg("webhook signature verification failed")
		return nil, domain.ErrSignatureInvalid
	}
	return &adapter.Event{
		ID:   event.ID,
		Type: string(event.Type),
		Raw:  event.Data.Raw,
		Full: payload,
	}, nil
}

func toAdapterIntent(pi *stripe.PaymentIntent) *adapter.PaymentIntent {
	out := &adapter.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		out.Status = adapter.IntentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		out.Status = adapter.IntentStatusFailed
	default:
		out.Status = adapter.IntentStatusPending
	}
	if pi.LatestCharge != nil {
		out.ReceiptURL = pi.LatestCharge.ReceiptURL
	}
	return out
}

func toAdapterSubscription(sub *stripe.Subscription) *adapter.ProviderSubscription {
	out := &adapter.ProviderSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.CanceledAt > 0 {
		t := time.Unix(sub.CanceledAt, 0)
		out.CanceledAt = &t
	}
	// Billing periods live on the subscription items in current API versions.
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		out.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0)
		out.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0)
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.ConfirmationSecret != nil {
		out.ClientSecret = sub.LatestInvoice.ConfirmationSecret.ClientSecret
	}
	return out
}
