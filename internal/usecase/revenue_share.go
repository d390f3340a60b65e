package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/metrics"
)

// HEART partnership share: 20% of every qualifying payment.
const heartSharePercent = 20

// ShouldShare reports whether a payment type participates in HEART revenue
// sharing. Direct listing payments and subscription invoices qualify.
func ShouldShare(t model.PaymentType) bool {
	switch t {
	case model.PaymentTypeJobPosting, model.PaymentTypeFeaturedListing, model.PaymentTypePremiumListing, model.PaymentTypeSubscription:
		return true
	}
	return false
}

// directShare reports whether the share is computed at payment-intent time.
// Subscription revenue is shared per invoice instead, keyed by the invoice.
func directShare(t model.PaymentType) bool {
	return ShouldShare(t) && t != model.PaymentTypeSubscription
}

// ComputeShare splits a total into partner and platform parts.
// heart = floor(total * 20%); the two parts always sum to total.
func ComputeShare(total int64) (heart, platform int64) {
	heart = total * heartSharePercent / 100
	return heart, total - heart
}

// RevenueShareUseCase records immutable HEART share rows, at most one per
// source key no matter how many times the originating event is delivered.
type RevenueShareUseCase struct {
	shares repository.RevenueShareRepository
	log    *zerolog.Logger
}

func NewRevenueShareUseCase(shares repository.RevenueShareRepository, logger *zerolog.Logger) *RevenueShareUseCase {
	return &RevenueShareUseCase{shares: shares, log: logger}
}

// RecordShare creates the share row for sourceKey unless one exists already.
// Returns whether a row was created; the duplicate case is a silent no-op.
func (uc *RevenueShareUseCase) RecordShare(ctx context.Context, tx repository.Tx, sourceKey string, totalAmount int64) (bool, error) {
	heart, platform := ComputeShare(totalAmount)
	rs := &model.RevenueShare{
		ID:             uuid.NewString(),
		SourceKey:      sourceKey,
		TotalAmount:    totalAmount,
		HeartShare:     heart,
		PlatformShare:  platform,
		ReportingMonth: model.ReportingMonthOf(time.Now()),
		CreatedAt:      time.Now(),
	}
	created, err := uc.shares.CreateIfAbsent(ctx, tx, rs)
	if err != nil {
		metrics.IncRevenueShareFailure()
		return false, err
	}
	if created {
		metrics.AddRevenueShare(heart, platform)
		uc.log.Info().Str("source_key", sourceKey).Int64("heart_share", heart).Int64("platform_share", platform).Msg("revenue share recorded")
	}
	return created, nil
}
