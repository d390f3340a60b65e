package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/adapter"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/logging"
	"jobboard-billing/internal/infra/metrics"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// ProcessWebhook verifies, records, and reconciles one provider event.
	// A returned error means the delivery must not be acknowledged; the
	// provider will redeliver and the stored audit row carries the failure.
	ProcessWebhook(ctx context.Context, payload []byte, signature string) error
}

type webhookUC struct {
	events   repository.WebhookEventRepository
	subs     repository.SubscriptionRepository
	invoices repository.InvoiceRepository
	payments repository.PaymentRepository
	shares   *RevenueShareUseCase
	payUC    PaymentUseCase
	gateway  adapter.ProviderGateway
	notifier adapter.Notifier
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewWebhookUseCase(
	events repository.WebhookEventRepository,
	subs repository.SubscriptionRepository,
	invoices repository.InvoiceRepository,
	payments repository.PaymentRepository,
	shares *RevenueShareUseCase,
	payUC PaymentUseCase,
	gateway adapter.ProviderGateway,
	notifier adapter.Notifier,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *webhookUC {
	return &webhookUC{
		events:   events,
		subs:     subs,
		invoices: invoices,
		payments: payments,
		shares:   shares,
		payUC:    payUC,
		gateway:  gateway,
		notifier: notifier,
		tm:       tm,
		log:      logger,
	}
}

func (u *webhookUC) ProcessWebhook(ctx context.Context, payload []byte, signature string) error {
	defer logging.TraceDuration(logging.With(ctx, u.log), "WebhookUC.ProcessWebhook")()

	event, err := u.gateway.ConstructEvent(payload, signature)
	if err != nil {
		metrics.IncWebhook("unknown", "signature_invalid")
		return err
	}

	created, err := u.events.InsertIfAbsent(ctx, nil, &model.WebhookEvent{
		ID:              uuid.NewString(),
		ExternalEventID: event.ID,
		EventType:       event.Type,
		Payload:         event.Full,
		CreatedAt:       time.Now(),
	})
	if err != nil {
		return err
	}
	if !created {
		prior, err := u.events.FindByExternalID(ctx, nil, event.ID)
		if err != nil {
			return err
		}
		if prior.Processed {
			// Redelivery of an event that already went through. Acknowledge
			// without side effects.
			u.log.Debug().Str("event_id", event.ID).Str("event_type", event.Type).Msg("duplicate webhook delivery ignored")
			metrics.IncWebhook(event.Type, "duplicate")
			return nil
		}
		// Seen before but never completed; run the handler again.
	}

	if err := u.dispatch(ctx, event); err != nil {
		now := time.Now()
		if markErr := u.events.MarkFailed(ctx, nil, event.ID, err.Error(), now); markErr != nil {
			u.log.Error().Err(markErr).Str("event_id", event.ID).Msg("failed to record webhook processing error")
		}
		metrics.IncWebhook(event.Type, "failed")
		return err
	}

	if err := u.events.MarkProcessed(ctx, nil, event.ID, time.Now()); err != nil {
		return err
	}
	metrics.IncWebhook(event.Type, "processed")
	return nil
}

func (u *webhookUC) dispatch(ctx context.Context, event *adapter.Event) error {
	switch event.Type {
	case "payment_intent.succeeded":
		return u.handlePaymentIntentSucceeded(ctx, event.Raw)
	case "payment_intent.payment_failed":
		return u.handlePaymentIntentFailed(ctx, event.Raw)
	case "invoice.payment_succeeded":
		return u.handleInvoicePaymentSucceeded(ctx, event.Raw)
	case "invoice.payment_failed":
		return u.handleInvoicePaymentFailed(ctx, event.Raw)
	case "invoice.created":
		return u.handleInvoiceCreated(ctx, event.Raw)
	case "customer.subscription.created":
		return u.handleSubscriptionCreated(ctx, event.Raw)
	case "customer.subscription.updated":
		return u.handleSubscriptionUpdated(ctx, event.Raw)
	case "customer.subscription.deleted":
		return u.handleSubscriptionDeleted(ctx, event.Raw)
	case "charge.dispute.created":
		return u.handleChargeDisputeCreated(ctx, event.Raw)
	default:
		u.log.Info().Str("event_type", event.Type).Msg("unhandled webhook event type")
		metrics.IncWebhook(event.Type, "unhandled")
		return nil
	}
}

func (u *webhookUC) handlePaymentIntentSucceeded(ctx context.Context, raw []byte) error {
	var pi intentPayload
	if err := json.Unmarshal(raw, &pi); err != nil {
		return err
	}

	// The webhook payload stopped carrying charge data in recent API
	// versions, so fetch the intent back to pick up the receipt url.
	receiptURL := ""
	if fetched, err := u.gateway.RetrievePaymentIntent(ctx, pi.ID); err != nil {
		u.log.Warn().Err(err).Str("external_payment_id", pi.ID).Msg("could not fetch receipt url, proceeding without it")
	} else {
		receiptURL = fetched.ReceiptURL
	}

	_, err := u.payUC.MarkSucceeded(ctx, pi.ID, receiptURL)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		// An intent we never created, likely from another system sharing the
		// provider account. Nothing to reconcile.
		u.log.Error().Str("external_payment_id", pi.ID).Msg("payment not found for succeeded intent")
		return nil
	}
	return err
}

func (u *webhookUC) handlePaymentIntentFailed(ctx context.Context, raw []byte) error {
	var pi intentPayload
	if err := json.Unmarshal(raw, &pi); err != nil {
		return err
	}
	_, err := u.payUC.MarkFailed(ctx, pi.ID)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		u.log.Error().Str("external_payment_id", pi.ID).Msg("payment not found for failed intent")
		return nil
	}
	return err
}

func (u *webhookUC) handleInvoicePaymentSucceeded(ctx context.Context, raw []byte) error {
	var inv invoicePayload
	if err := json.Unmarshal(raw, &inv); err != nil {
		return err
	}
	subExternalID := inv.subscriptionID()
	if subExternalID == "" {
		return nil
	}

	s, err := u.subs.FindByExternalID(ctx, nil, subExternalID)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		u.log.Error().Str("external_subscription_id", subExternalID).Msg("subscription not found for paid invoice")
		return nil
	}
	if err != nil {
		return err
	}

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		err := u.subs.UpdateFromProvider(ctx, tx, s.ID,
			model.SubscriptionStatusActive,
			time.Unix(inv.PeriodStart, 0), time.Unix(inv.PeriodEnd, 0),
			s.CancelAtPeriodEnd, s.CanceledAt)
		if err != nil {
			return err
		}
		if err := u.invoices.Upsert(ctx, tx, inv.toModel(s.UserID, &s.ID)); err != nil {
			return err
		}
		if inv.AmountPaid > 0 {
			key := model.SubscriptionShareKey(s.ID, inv.ID)
			if _, err := u.shares.RecordShare(ctx, tx, key, inv.AmountPaid); err != nil {
				return err
			}
		}
		return nil
	})
}

func (u *webhookUC) handleInvoicePaymentFailed(ctx context.Context, raw []byte) error {
	var inv invoicePayload
	if err := json.Unmarshal(raw, &inv); err != nil {
		return err
	}
	subExternalID := inv.subscriptionID()
	if subExternalID == "" {
		return nil
	}

	s, err := u.subs.FindByExternalID(ctx, nil, subExternalID)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		u.log.Error().Str("external_subscription_id", subExternalID).Msg("subscription not found for failed invoice")
		return nil
	}
	if err != nil {
		return err
	}

	if err := u.subs.UpdateStatus(ctx, nil, s.ID, model.SubscriptionStatusPastDue, nil); err != nil {
		return err
	}
	u.notify(ctx, s.UserID, adapter.NotifySubscriptionPastDue, map[string]interface{}{
		"subscriptionId": s.ID,
		"plan":           string(s.Plan),
	})
	return nil
}

func (u *webhookUC) handleInvoiceCreated(ctx context.Context, raw []byte) error {
	var inv invoicePayload
	if err := json.Unmarshal(raw, &inv); err != nil {
		return err
	}
	subExternalID := inv.subscriptionID()
	if subExternalID == "" {
		return nil
	}

	s, err := u.subs.FindByExternalID(ctx, nil, subExternalID)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		u.log.Error().Str("external_subscription_id", subExternalID).Msg("subscription not found for created invoice")
		return nil
	}
	if err != nil {
		return err
	}
	return u.invoices.Upsert(ctx, nil, inv.toModel(s.UserID, &s.ID))
}

func (u *webhookUC) handleSubscriptionCreated(ctx context.Context, raw []byte) error {
	var sp subscriptionPayload
	if err := json.Unmarshal(raw, &sp); err != nil {
		return err
	}
	userID := sp.Metadata["userId"]
	if userID == "" {
		u.log.Error().Str("external_subscription_id", sp.ID).Msg("subscription event carries no user id")
		return nil
	}

	s, err := u.subs.FindByExternalID(ctx, nil, sp.ID)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		u.log.Error().Str("external_subscription_id", sp.ID).Msg("subscription not found for creation event")
		return nil
	}
	if err != nil {
		return err
	}
	if s.UserID != userID {
		// Metadata disagrees with the local row. Never mutate on conflicting
		// identity; acknowledge so the provider stops redelivering.
		u.log.Error().
			Str("subscription_id", s.ID).
			Str("local_user_id", s.UserID).
			Str("event_user_id", userID).
			Msg("subscription user mismatch, event ignored")
		metrics.IncWebhook("customer.subscription.created", "user_mismatch")
		return nil
	}

	return u.applyProviderSubscription(ctx, s, &sp)
}

func (u *webhookUC) handleSubscriptionUpdated(ctx context.Context, raw []byte) error {
	var sp subscriptionPayload
	if err := json.Unmarshal(raw, &sp); err != nil {
		return err
	}
	s, err := u.subs.FindByExternalID(ctx, nil, sp.ID)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		u.log.Error().Str("external_subscription_id", sp.ID).Msg("subscription not found for update event")
		return nil
	}
	if err != nil {
		return err
	}
	return u.applyProviderSubscription(ctx, s, &sp)
}

func (u *webhookUC) handleSubscriptionDeleted(ctx context.Context, raw []byte) error {
	var sp subscriptionPayload
	if err := json.Unmarshal(raw, &sp); err != nil {
		return err
	}
	s, err := u.subs.FindByExternalID(ctx, nil, sp.ID)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		u.log.Error().Str("external_subscription_id", sp.ID).Msg("subscription not found for delete event")
		return nil
	}
	if err != nil {
		return err
	}

	now := time.Now()
	if err := u.subs.UpdateStatus(ctx, nil, s.ID, model.SubscriptionStatusCanceled, &now); err != nil {
		return err
	}
	metrics.IncSubscription("canceled")
	u.notify(ctx, s.UserID, adapter.NotifySubscriptionCanceled, map[string]interface{}{
		"subscriptionId": s.ID,
		"plan":           string(s.Plan),
	})
	return nil
}

func (u *webhookUC) handleChargeDisputeCreated(ctx context.Context, raw []byte) error {
	var dp disputePayload
	if err := json.Unmarshal(raw, &dp); err != nil {
		return err
	}
	p, err := u.payments.FindByExternalID(ctx, nil, dp.PaymentIntent)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		u.log.Error().Str("dispute_id", dp.ID).Str("external_payment_id", dp.PaymentIntent).Msg("payment not found for dispute")
		return nil
	}
	if err != nil {
		return err
	}

	u.log.Warn().
		Str("payment_id", p.ID).
		Str("dispute_id", dp.ID).
		Str("reason", dp.Reason).
		Int64("amount", dp.Amount).
		Msg("charge dispute opened")
	metrics.IncDispute(dp.Reason)

	u.notify(ctx, p.UserID, adapter.NotifyDisputeOpened, map[string]interface{}{
		"paymentId": p.ID,
		"disputeId": dp.ID,
		"reason":    dp.Reason,
		"amount":    dp.Amount,
	})
	return nil
}

// applyProviderSubscription overwrites the webhook-owned subscription fields
// with the provider's view.
func (u *webhookUC) applyProviderSubscription(ctx context.Context, s *model.Subscription, sp *subscriptionPayload) error {
	var canceledAt *time.Time
	if sp.CanceledAt != nil {
		t := time.Unix(*sp.CanceledAt, 0)
		canceledAt = &t
	}
	return u.subs.UpdateFromProvider(ctx, nil, s.ID,
		MapProviderSubscriptionStatus(sp.Status),
		time.Unix(sp.periodStart(), 0), time.Unix(sp.periodEnd(), 0),
		sp.CancelAtPeriodEnd, canceledAt)
}

// notify delivers best-effort; a notification failure never fails the event.
func (u *webhookUC) notify(ctx context.Context, userID, kind string, payload map[string]interface{}) {
	if err := u.notifier.Notify(ctx, userID, kind, payload); err != nil {
		metrics.IncNotificationFailure(kind)
		u.log.Warn().Err(err).Str("user_id", userID).Str("kind", kind).Msg("notification delivery failed")
	}
}

// Wire payloads below are owned here rather than borrowed from the provider
// SDK: the SDK's structs track the newest API version and have moved or
// dropped the exact fields these handlers read.

type intentPayload struct {
	ID string `json:"id"`
}

type invoicePayload struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
	Number       string `json:"number"`
	AmountDue    int64  `json:"amount_due"`
	AmountPaid   int64  `json:"amount_paid"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	Tax          *int64 `json:"tax"`
	Created      int64  `json:"created"`
	DueDate      *int64 `json:"due_date"`
	PeriodStart  int64  `json:"period_start"`
	PeriodEnd    int64  `json:"period_end"`

	StatusTransitions struct {
		PaidAt *int64 `json:"paid_at"`
	} `json:"status_transitions"`

	HostedInvoiceURL *string `json:"hosted_invoice_url"`
	InvoicePDF       *string `json:"invoice_pdf"`

	// Newer API versions nest the subscription reference under parent.
	Parent *struct {
		SubscriptionDetails *struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (p *invoicePayload) subscriptionID() string {
	if p.Subscription != "" {
		return p.Subscription
	}
	if p.Parent != nil && p.Parent.SubscriptionDetails != nil {
		return p.Parent.SubscriptionDetails.Subscription
	}
	return ""
}

func (p *invoicePayload) toModel(userID string, subscriptionID *string) *model.Invoice {
	number := p.Number
	if number == "" {
		number = "INV-" + p.ID
	}
	dueDate := time.Now()
	if p.DueDate != nil {
		dueDate = time.Unix(*p.DueDate, 0)
	}
	var paidAt *time.Time
	if p.StatusTransitions.PaidAt != nil {
		t := time.Unix(*p.StatusTransitions.PaidAt, 0)
		paidAt = &t
	}
	return &model.Invoice{
		ID:                uuid.NewString(),
		ExternalInvoiceID: p.ID,
		UserID:            userID,
		SubscriptionID:    subscriptionID,
		InvoiceNumber:     number,
		Amount:            p.AmountDue,
		Currency:          model.Currency(strings.ToUpper(p.Currency)),
		Status:            p.Status,
		TaxAmount:         p.Tax,
		IssueDate:         time.Unix(p.Created, 0),
		DueDate:           dueDate,
		PaidAt:            paidAt,
		HostedInvoiceURL:  p.HostedInvoiceURL,
		InvoicePDF:        p.InvoicePDF,
	}
}

type subscriptionPayload struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CanceledAt         *int64            `json:"canceled_at"`
	Metadata           map[string]string `json:"metadata"`

	// Newer API versions carry the billing period on the items instead.
	Items struct {
		Data []struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

func (p *subscriptionPayload) periodStart() int64 {
	if p.CurrentPeriodStart != 0 {
		return p.CurrentPeriodStart
	}
	if len(p.Items.Data) > 0 {
		return p.Items.Data[0].CurrentPeriodStart
	}
	return 0
}

func (p *subscriptionPayload) periodEnd() int64 {
	if p.CurrentPeriodEnd != 0 {
		return p.CurrentPeriodEnd
	}
	if len(p.Items.Data) > 0 {
		return p.Items.Data[0].CurrentPeriodEnd
	}
	return 0
}

type disputePayload struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
	Reason        string `json:"reason"`
	Amount        int64  `json:"amount"`
}
