package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, external_payment_id, user_id, amount, currency, payment_type, status, job_id, subscription_id, heart_share_amount, refunded_amount, receipt_url, description, metadata, created_at, processed_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, external_payment_id, user_id, amount, currency, payment_type, status, job_id, subscription_id, heart_share_amount, refunded_amount, receipt_url, description, metadata, created_at, processed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.ExternalPaymentID, p.UserID, p.Amount, p.Currency, p.PaymentType, p.Status,
		p.JobID, p.SubscriptionID, p.HeartShareAmount, p.RefundedAmount, p.ReceiptURL,
		p.Description, p.Metadata, p.CreatedAt, p.ProcessedAt)
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

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE external_payment_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, externalID)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	return p, err
}

// UpdateStatusIfPending atomically updates status only when the current
// status is PENDING. The returned bool reports whether a row changed; false
// means a concurrent transition won.
func (r *paymentRepo) UpdateStatusIfPending(
	ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, receiptURL *string, processedAt time.Time,
) (bool, error) {
	const q = `
    UPDATE payments
       SET status = $2,
           receipt_url = COALESCE($3, receipt_url),
           processed_at = $4
     WHERE id = $1
       AND status = 'PENDING';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), receiptURL, processedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// MarkRefunded re-checks the bound inside the UPDATE: the use case validates
// against a snapshot read, so an interleaved refund could otherwise push the
// running total past the original amount.
func (r *paymentRepo) MarkRefunded(ctx context.Context, tx repository.Tx, id string, amount int64, full bool) error {
	q := `UPDATE payments SET refunded_amount = refunded_amount + $2 WHERE id=$1 AND refunded_amount + $2 <= amount;`
	if full {
		q = `UPDATE payments SET refunded_amount = refunded_amount + $2, status='REFUNDED' WHERE id=$1 AND status='SUCCEEDED' AND refunded_amount + $2 <= amount;`
	}
	cmd, err := execSQL(ctx, r.pool, tx, q, id, amount)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, offset, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepo) CountByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	const q = `SELECT COUNT(*) FROM payments WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	err := row.Scan(&p.ID, &p.ExternalPaymentID, &p.UserID, &p.Amount, &p.Currency, &p.PaymentType, &p.Status,
		&p.JobID, &p.SubscriptionID, &p.HeartShareAmount, &p.RefundedAmount, &p.ReceiptURL,
		&p.Description, &p.Metadata, &p.CreatedAt, &p.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
