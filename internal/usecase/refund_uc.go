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
var _ RefundUseCase = (*refundUC)(nil)

type ProcessRefundRequest struct {
	PaymentID string
	// Amount in minor units. Zero means refund everything not yet refunded.
	Amount      int64
	Reason      model.RefundReason
	ProcessedBy *string
	Notes       *string
}

type RefundUseCase interface {
	// ProcessRefund issues a refund against a succeeded payment. Partial
	// refunds accumulate; the payment flips to REFUNDED only when the running
	// total reaches the original amount. Over-refunding is rejected before the
	// provider is called.
	ProcessRefund(ctx context.Context, req ProcessRefundRequest) (*model.Refund, error)
}

type refundUC struct {
	payments repository.PaymentRepository
	refunds  repository.RefundRepository
	gateway  adapter.ProviderGateway
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewRefundUseCase(
	payments repository.PaymentRepository,
	refunds repository.RefundRepository,
	gateway adapter.ProviderGateway,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *refundUC {
	return &refundUC{payments: payments, refunds: refunds, gateway: gateway, tm: tm, log: logger}
}

func (u *refundUC) ProcessRefund(ctx context.Context, req ProcessRefundRequest) (*model.Refund, error) {
	defer logging.TraceDuration(logging.With(ctx, u.log), "RefundUC.ProcessRefund")()

	if req.PaymentID == "" || req.Amount < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if req.Reason == "" {
		req.Reason = model.RefundReasonCustomerRequested
	}
	if !model.ValidRefundReason(req.Reason) {
		return nil, domain.ErrInvalidArgument
	}

	p, err := u.payments.FindByID(ctx, nil, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PaymentStatusSucceeded {
		return nil, domain.ErrInvalidState
	}

	remaining := p.Amount - p.RefundedAmount
	amount := req.Amount
	if amount == 0 {
		amount = remaining
	}
	if amount <= 0 || amount > remaining {
		return nil, domain.ErrInvalidArgument
	}

	pr, err := u.gateway.CreateRefund(ctx, adapter.RefundRequest{
		ExternalPaymentID: p.ExternalPaymentID,
		Amount:            amount,
		Reason:            req.Reason,
	})
	if err != nil {
		u.log.Error().Err(err).Str("payment_id", p.ID).Msg("provider refund failed")
		metrics.IncRefund("provider_error")
		return nil, err
	}

	full := p.RefundedAmount+amount >= p.Amount
	refund := &model.Refund{
		ID:               uuid.NewString(),
		PaymentID:        p.ID,
		ExternalRefundID: pr.ID,
		Amount:           amount,
		Currency:         p.Currency,
		Reason:           req.Reason,
		Status:           pr.Status,
		ProcessedBy:      req.ProcessedBy,
		Notes:            req.Notes,
		CreatedAt:        time.Now(),
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.refunds.Save(ctx, tx, refund); err != nil {
			return err
		}
		return u.payments.MarkRefunded(ctx, tx, p.ID, amount, full)
	})
	if err != nil {
		// The provider refund went through but the local books did not.
		// Webhook redelivery cannot fix this one, so it has to be loud.
		u.log.Error().Err(err).
			Str("payment_id", p.ID).
			Str("external_refund_id", pr.ID).
			Msg("refund issued at provider but not recorded locally")
		metrics.IncRefund("record_error")
		return nil, err
	}

	status := "partial"
	if full {
		status = "full"
	}
	metrics.IncRefund(status)
	return refund, nil
}
