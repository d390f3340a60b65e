package repository

import (
	"context"

	"jobboard-billing/internal/domain/model"
)

type RevenueShareRepository interface {
	// CreateIfAbsent inserts the share unless a row for its SourceKey already
	// exists, and reports whether a row was created. Never updates.
	CreateIfAbsent(ctx context.Context, tx Tx, rs *model.RevenueShare) (bool, error)
	FindBySourceKey(ctx context.Context, tx Tx, sourceKey string) (*model.RevenueShare, error)
	SumByMonth(ctx context.Context, tx Tx, reportingMonth string) (heart int64, platform int64, err error)
}
