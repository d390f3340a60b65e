package repository

import (
	"context"
	"time"

	"jobboard-billing/internal/domain/model"
)

type WebhookEventRepository interface {
	// InsertIfAbsent appends the audit row unless the external event id was
	// seen before; created=false means a duplicate delivery.
	InsertIfAbsent(ctx context.Context, tx Tx, e *model.WebhookEvent) (created bool, err error)
	FindByExternalID(ctx context.Context, tx Tx, externalID string) (*model.WebhookEvent, error)
	MarkProcessed(ctx context.Context, tx Tx, externalID string, processedAt time.Time) error
	MarkFailed(ctx context.Context, tx Tx, externalID string, processingError string, processedAt time.Time) error
}
