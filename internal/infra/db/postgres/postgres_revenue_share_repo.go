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

var _ repository.RevenueShareRepository = (*revenueShareRepo)(nil)

type revenueShareRepo struct{ pool *pgxpool.Pool }

func NewRevenueShareRepo(pool *pgxpool.Pool) *revenueShareRepo {
	return &revenueShareRepo{pool: pool}
}

// CreateIfAbsent relies on the unique index over source_key; the conflict
// path reports created=false without touching the existing row.
func (r *revenueShareRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, rs *model.RevenueShare) (bool, error) {
	const q = `
INSERT INTO revenue_shares (
  id, source_key, total_amount, heart_share, platform_share, reporting_month, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (source_key) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		rs.ID, rs.SourceKey, rs.TotalAmount, rs.HeartShare, rs.PlatformShare, rs.ReportingMonth, rs.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *revenueShareRepo) FindBySourceKey(ctx context.Context, tx repository.Tx, sourceKey string) (*model.RevenueShare, error) {
	const q = `SELECT id, source_key, total_amount, heart_share, platform_share, reporting_month, created_at FROM revenue_shares WHERE source_key=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, sourceKey)
	if err != nil {
		return nil, err
	}

	rs := &model.RevenueShare{}
	if err := row.Scan(&rs.ID, &rs.SourceKey, &rs.TotalAmount, &rs.HeartShare, &rs.PlatformShare, &rs.ReportingMonth, &rs.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return rs, nil
}

func (r *revenueShareRepo) SumByMonth(ctx context.Context, tx repository.Tx, reportingMonth string) (int64, int64, error) {
	const q = `SELECT COALESCE(SUM(heart_share),0), COALESCE(SUM(platform_share),0) FROM revenue_shares WHERE reporting_month=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, reportingMonth)
	if err != nil {
		return 0, 0, err
	}

	var heart, platform int64
	if err := row.Scan(&heart, &platform); err != nil {
		return 0, 0, domain.ErrReadDatabaseRow
	}
	return heart, platform, nil
}
