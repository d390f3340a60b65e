package repository

import (
	"context"
	"time"

	"jobboard-billing/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByExternalID(ctx context.Context, tx Tx, externalID string) (*model.Subscription, error)
	// UpdateFromProvider overwrites the webhook-owned fields. Provider state
	// always wins over local guesses.
	UpdateFromProvider(ctx context.Context, tx Tx, id string, status model.SubscriptionStatus, periodStart, periodEnd time.Time, cancelAtPeriodEnd bool, canceledAt *time.Time) error
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.SubscriptionStatus, canceledAt *time.Time) error
	SetCancelAtPeriodEnd(ctx context.Context, tx Tx, id string, cancel bool) error
}

type InvoiceRepository interface {
	// Upsert keyed by external invoice id; redelivery updates in place.
	Upsert(ctx context.Context, tx Tx, inv *model.Invoice) error
	FindByExternalID(ctx context.Context, tx Tx, externalID string) (*model.Invoice, error)
}
