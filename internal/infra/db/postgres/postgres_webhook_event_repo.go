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

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

// InsertIfAbsent appends the audit row; the unique index over
// external_event_id turns redelivery into created=false.
func (r *webhookEventRepo) InsertIfAbsent(ctx context.Context, tx repository.Tx, e *model.WebhookEvent) (bool, error) {
	const q = `
INSERT INTO webhook_events (
  id, external_event_id, event_type, payload, processed, processed_at, processing_error, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (external_event_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		e.ID, e.ExternalEventID, e.EventType, e.Payload, e.Processed, e.ProcessedAt, e.ProcessingError, e.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *webhookEventRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.WebhookEvent, error) {
	const q = `SELECT id, external_event_id, event_type, payload, processed, processed_at, processing_error, created_at FROM webhook_events WHERE external_event_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, externalID)
	if err != nil {
		return nil, err
	}

	e := &model.WebhookEvent{}
	err = row.Scan(&e.ID, &e.ExternalEventID, &e.EventType, &e.Payload, &e.Processed, &e.ProcessedAt, &e.ProcessingError, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, externalID string, processedAt time.Time) error {
	const q = `UPDATE webhook_events SET processed=TRUE, processed_at=$2, processing_error=NULL WHERE external_event_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, externalID, processedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *webhookEventRepo) MarkFailed(ctx context.Context, tx repository.Tx, externalID string, processingError string, processedAt time.Time) error {
	const q = `UPDATE webhook_events SET processed=FALSE, processed_at=$2, processing_error=$3 WHERE external_event_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, externalID, processedAt, processingError)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
