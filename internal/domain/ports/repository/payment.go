package repository

import (
	"context"
	"time"

	"jobboard-billing/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByExternalID(ctx context.Context, tx Tx, externalID string) (*model.Payment, error)
	// UpdateStatusIfPending atomically moves a PENDING payment to status and
	// reports whether a row changed. The no-change case is how concurrent
	// confirm/webhook racers detect they lost.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.PaymentStatus, receiptURL *string, processedAt time.Time) (bool, error)
	// MarkRefunded adds amount to the refunded running total and, when full
	// becomes true, transitions SUCCEEDED -> REFUNDED. Returns ErrInvalidState
	// when the addition would exceed the payment amount, so a caller that
	// validated against a stale read cannot overshoot the books.
	MarkRefunded(ctx context.Context, tx Tx, id string, amount int64, full bool) error
	ListByUser(ctx context.Context, tx Tx, userID string, offset, limit int) ([]*model.Payment, error)
	CountByUser(ctx context.Context, tx Tx, userID string) (int, error)
}

type RefundRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Refund) error
	ListByPayment(ctx context.Context, tx Tx, paymentID string) ([]*model.Refund, error)
}
