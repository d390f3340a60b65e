package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "ACTIVE"
	SubscriptionStatusTrialing   SubscriptionStatus = "TRIALING"
	SubscriptionStatusPastDue    SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCanceled   SubscriptionStatus = "CANCELED"
	SubscriptionStatusIncomplete SubscriptionStatus = "INCOMPLETE"
)

type SubscriptionPlan string

const (
	PlanBasic   SubscriptionPlan = "BASIC"
	PlanPremium SubscriptionPlan = "PREMIUM"
)

func ValidPlan(p SubscriptionPlan) bool {
	return p == PlanBasic || p == PlanPremium
}

// Subscription represents a recurring billing agreement. Status mirrors the
// provider's subscription status; once a local row exists, webhook events are
// the only writer of Status outside of an explicit immediate cancel.
type Subscription struct {
	ID                     string // UUID
	ExternalSubscriptionID string // provider subscription id (unique)
	UserID                 string
	Plan                   SubscriptionPlan
	Amount                 int64 // minor units per billing period
	Currency               Currency
	Status                 SubscriptionStatus
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	CancelAtPeriodEnd      bool
	CanceledAt             *time.Time
	PlanFeatures
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlanFeatures are the entitlement flags copied from the static feature table
// at creation time, so a later price-table change does not retroactively alter
// an existing subscription.
type PlanFeatures struct {
	JobPostingLimit  int
	FeaturedListings int
	PremiumSupport   bool
	AnalyticsAccess  bool
}

// Terminal reports whether the subscription reached its final state.
func (s *Subscription) Terminal() bool {
	return s.Status == SubscriptionStatusCanceled
}

// FeaturesForPlan returns the static entitlement table for a plan.
func FeaturesForPlan(plan SubscriptionPlan) PlanFeatures {
	switch plan {
	case PlanPremium:
		return PlanFeatures{JobPostingLimit: 50, FeaturedListings: 10, PremiumSupport: true, AnalyticsAccess: true}
	default:
		return PlanFeatures{JobPostingLimit: 10, FeaturedListings: 2, PremiumSupport: false, AnalyticsAccess: true}
	}
}
