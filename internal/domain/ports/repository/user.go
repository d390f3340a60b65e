package repository

import (
	"context"

	"jobboard-billing/internal/domain/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// SetExternalCustomerID persists the provider customer id. Written once;
	// implementations must not overwrite an existing non-empty value.
	SetExternalCustomerID(ctx context.Context, tx Tx, userID, customerID string) error
}

type JobRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Job, error)
	// Activate marks the job ACTIVE and optionally featured. Idempotent.
	Activate(ctx context.Context, tx Tx, jobID string, featured bool) error
}
