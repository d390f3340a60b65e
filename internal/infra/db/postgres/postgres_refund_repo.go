package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
)

var _ repository.RefundRepository = (*refundRepo)(nil)

type refundRepo struct{ pool *pgxpool.Pool }

func NewRefundRepo(pool *pgxpool.Pool) *refundRepo {
	return &refundRepo{pool: pool}
}

func (r *refundRepo) Save(ctx context.Context, tx repository.Tx, rf *model.Refund) error {
	const q = `
INSERT INTO refunds (
  id, payment_id, external_refund_id, amount, currency, reason, status, processed_by, notes, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	_, err := execSQL(ctx, r.pool, tx, q,
		rf.ID, rf.PaymentID, rf.ExternalRefundID, rf.Amount, rf.Currency, rf.Reason,
		rf.Status, rf.ProcessedBy, rf.Notes, rf.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists),
			errors.Is(err, domain.ErrInvalidArgument),
			errors.Is(err, domain.ErrInvalidExecContext):
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *refundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	const q = `SELECT id, payment_id, external_refund_id, amount, currency, reason, status, processed_by, notes, created_at FROM refunds WHERE payment_id=$1 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Refund
	for rows.Next() {
		rf := new(model.Refund)
		err := rows.Scan(&rf.ID, &rf.PaymentID, &rf.ExternalRefundID, &rf.Amount, &rf.Currency,
			&rf.Reason, &rf.Status, &rf.ProcessedBy, &rf.Notes, &rf.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, rf)
	}
	return out, nil
}
