package usecase

import (
	"context"
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
var _ PaymentUseCase = (*paymentUC)(nil)

type CreatePaymentIntentRequest struct {
	UserID         string
	Amount         int64 // minor units
	Currency       model.Currency
	PaymentType    model.PaymentType
	JobID          *string
	SubscriptionID *string
	Description    string
	Metadata       map[string]interface{}
}

type CreatePaymentIntentResult struct {
	PaymentID    string
	ClientSecret string
	Amount       int64
	Currency     model.Currency
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type PaymentWithRefunds struct {
	*model.Payment
	Refunds []*model.Refund
}

type PaymentHistory struct {
	Payments   []*PaymentWithRefunds
	Pagination Pagination
}

type PaymentUseCase interface {
	// CreatePaymentIntent opens a charge intent with the provider and records
	// the local PENDING payment. No local row is created if the provider call
	// fails.
	CreatePaymentIntent(ctx context.Context, req CreatePaymentIntentRequest) (*CreatePaymentIntentResult, error)
	// ConfirmPayment pulls the authoritative intent status from the provider
	// and applies it locally. Idempotent against the webhook path.
	ConfirmPayment(ctx context.Context, externalPaymentID string) (*model.Payment, error)
	// MarkSucceeded is the single shared PENDING->SUCCEEDED transition used by
	// both the confirmation call and the webhook reconciler. Running it
	// against an already-terminal payment is a no-op. Post-payment side
	// effects (revenue share, job activation) commit atomically with the
	// status change; the confirmation notification is fire-and-forget.
	MarkSucceeded(ctx context.Context, externalPaymentID, receiptURL string) (*model.Payment, error)
	// MarkFailed is the shared PENDING->FAILED transition.
	MarkFailed(ctx context.Context, externalPaymentID string) (*model.Payment, error)
	GetPaymentHistory(ctx context.Context, userID string, page, limit int) (*PaymentHistory, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	refunds  repository.RefundRepository
	jobs     repository.JobRepository
	shares   *RevenueShareUseCase
	gateway  adapter.ProviderGateway
	notifier adapter.Notifier
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	refunds repository.RefundRepository,
	jobs repository.JobRepository,
	shares *RevenueShareUseCase,
	gateway adapter.ProviderGateway,
	notifier adapter.Notifier,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		payments: payments,
		refunds:  refunds,
		jobs:     jobs,
		shares:   shares,
		gateway:  gateway,
		notifier: notifier,
		tm:       tm,
		log:      logger,
	}
}

func (u *paymentUC) CreatePaymentIntent(ctx context.Context, req CreatePaymentIntentRequest) (*CreatePaymentIntentResult, error) {
	defer logging.TraceDuration(logging.With(ctx, u.log), "PaymentUC.CreatePaymentIntent")()

	if req.Amount <= 0 || req.UserID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !model.ValidCurrency(req.Currency) || !model.ValidPaymentType(req.PaymentType) {
		return nil, domain.ErrInvalidArgument
	}

	meta := map[string]string{
		"userId":      req.UserID,
		"paymentType": string(req.PaymentType),
	}
	if req.JobID != nil {
		meta["jobId"] = *req.JobID
	}
	if req.SubscriptionID != nil {
		meta["subscriptionId"] = *req.SubscriptionID
	}
	description := req.Description
	if description == "" {
		description = "JamDung Jobs - " + string(req.PaymentType)
	}

	// Provider first: a failed creation call must not leave an orphan row,
	// and is never retried here (double-charge risk).
	intent, err := u.gateway.CreatePaymentIntent(ctx, adapter.CreateIntentRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: description,
		Metadata:    meta,
	})
	if err != nil {
		u.log.Error().Err(err).Str("user_id", req.UserID).Msg("provider payment intent creation failed")
		return nil, err
	}

	var heartShare *int64
	if directShare(req.PaymentType) {
		share, _ := ComputeShare(req.Amount)
		heartShare = &share
	}

	p := &model.Payment{
		ID:                uuid.NewString(),
		ExternalPaymentID: intent.ID,
		UserID:            req.UserID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		PaymentType:       req.PaymentType,
		Status:            model.PaymentStatusPending,
		JobID:             req.JobID,
		SubscriptionID:    req.SubscriptionID,
		HeartShareAmount:  heartShare,
		Description:       description,
		Metadata:          req.Metadata,
		CreatedAt:         time.Now(),
	}
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	metrics.IncPayment("pending")

	return &CreatePaymentIntentResult{
		PaymentID:    p.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       p.Amount,
		Currency:     p.Currency,
	}, nil
}

func (u *paymentUC) ConfirmPayment(ctx context.Context, externalPaymentID string) (*model.Payment, error) {
	intent, err := u.gateway.RetrievePaymentIntent(ctx, externalPaymentID)
	if err != nil {
		return nil, err
	}

	switch intent.Status {
	case adapter.IntentStatusSucceeded:
		return u.MarkSucceeded(ctx, externalPaymentID, intent.ReceiptURL)
	case adapter.IntentStatusFailed:
		return u.MarkFailed(ctx, externalPaymentID)
	default:
		// Still pending at the provider; report current local state.
		p, err := u.payments.FindByExternalID(ctx, nil, externalPaymentID)
		if err != nil {
			return nil, domain.ErrPaymentNotFound
		}
		return p, nil
	}
}

func (u *paymentUC) MarkSucceeded(ctx context.Context, externalPaymentID, receiptURL string) (*model.Payment, error) {
	defer logging.TraceDuration(logging.With(ctx, u.log), "PaymentUC.MarkSucceeded")()

	var out *model.Payment
	var transitioned bool
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByExternalID(ctx, tx, externalPaymentID)
		if err != nil {
			u.log.Error().Str("external_payment_id", externalPaymentID).Msg("payment missing for provider-confirmed intent")
			return domain.ErrPaymentNotFound
		}
		if p.Terminal() {
			// Duplicate or stale event; FAILED/REFUNDED never move to SUCCEEDED.
			out = p
			return nil
		}

		now := time.Now()
		var receipt *string
		if receiptURL != "" {
			receipt = &receiptURL
		}
		changed, err := u.payments.UpdateStatusIfPending(ctx, tx, p.ID, model.PaymentStatusSucceeded, receipt, now)
		if err != nil {
			return err
		}
		if !changed {
			// Lost the race against the other producer; its side effects win.
			out = p
			return nil
		}
		p.Status = model.PaymentStatusSucceeded
		p.ReceiptURL = receipt
		p.ProcessedAt = &now

		// Side effects commit with the status change: a mid-sequence failure
		// rolls everything back and the provider's redelivery retries it.
		if directShare(p.PaymentType) && p.HeartShareAmount != nil {
			if _, err := u.shares.RecordShare(ctx, tx, p.ID, p.Amount); err != nil {
				return err
			}
		}
		if p.JobID != nil {
			featured := p.PaymentType == model.PaymentTypeFeaturedListing || p.PaymentType == model.PaymentTypePremiumListing
			if err := u.jobs.Activate(ctx, tx, *p.JobID, featured); err != nil {
				return err
			}
		}

		out = p
		transitioned = true
		metrics.IncPayment("succeeded")
		metrics.AddPaymentRevenue(string(p.Currency), p.Amount)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		u.notify(ctx, out.UserID, adapter.NotifyPaymentConfirmed, map[string]interface{}{
			"paymentId": out.ID,
			"amount":    out.Amount,
			"currency":  out.Currency,
		})
	}
	return out, nil
}

func (u *paymentUC) MarkFailed(ctx context.Context, externalPaymentID string) (*model.Payment, error) {
	p, err := u.payments.FindByExternalID(ctx, nil, externalPaymentID)
	if err != nil {
		u.log.Error().Str("external_payment_id", externalPaymentID).Msg("payment missing for provider-failed intent")
		return nil, domain.ErrPaymentNotFound
	}
	if p.Terminal() {
		return p, nil
	}

	now := time.Now()
	changed, err := u.payments.UpdateStatusIfPending(ctx, nil, p.ID, model.PaymentStatusFailed, nil, now)
	if err != nil {
		return nil, err
	}
	if changed {
		p.Status = model.PaymentStatusFailed
		p.ProcessedAt = &now
		metrics.IncPayment("failed")
		u.notify(ctx, p.UserID, adapter.NotifyPaymentFailed, map[string]interface{}{
			"paymentId": p.ID,
			"amount":    p.Amount,
		})
	}
	return p, nil
}

func (u *paymentUC) GetPaymentHistory(ctx context.Context, userID string, page, limit int) (*PaymentHistory, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	payments, err := u.payments.ListByUser(ctx, nil, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	total, err := u.payments.CountByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*PaymentWithRefunds, 0, len(payments))
	for _, p := range payments {
		refunds, err := u.refunds.ListByPayment(ctx, nil, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &PaymentWithRefunds{Payment: p, Refunds: refunds})
	}

	pages := (total + limit - 1) / limit
	return &PaymentHistory{
		Payments:   out,
		Pagination: Pagination{Page: page, Limit: limit, Total: total, Pages: pages},
	}, nil
}

// notify dispatches fire-and-forget; a delivery failure is surfaced through
// logs and metrics only, never to the payment result.
func (u *paymentUC) notify(ctx context.Context, userID, kind string, payload map[string]interface{}) {
	if err := u.notifier.Notify(ctx, userID, kind, payload); err != nil {
		metrics.IncNotificationFailure(kind)
		u.log.Warn().Err(err).Str("user_id", userID).Str("kind", kind).Msg("notification dispatch failed")
	}
}
