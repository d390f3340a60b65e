package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/adapter"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/logging"
	"jobboard-billing/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type CreateSubscriptionResult struct {
	SubscriptionID string
	ClientSecret   string
	Status         model.SubscriptionStatus
}

type SubscriptionUseCase interface {
	// CreateSubscription prices the plan, ensures the user has a provider
	// customer id (created once, reused ever after), opens the provider
	// subscription with default_incomplete payment behavior, and persists the
	// local row with the provider's initial status verbatim.
	CreateSubscription(ctx context.Context, userID string, plan model.SubscriptionPlan, currency model.Currency, paymentMethodID string) (*CreateSubscriptionResult, error)
	// CancelSubscription cancels at the provider. With cancelAtPeriodEnd the
	// local row stays ACTIVE and only the flag flips; otherwise the row is
	// CANCELED immediately.
	CancelSubscription(ctx context.Context, subscriptionID string, cancelAtPeriodEnd bool) (*model.Subscription, error)
	// UpdatePlan changes the subscription's plan. Not implemented yet.
	UpdatePlan(ctx context.Context, subscriptionID string, plan model.SubscriptionPlan) (*model.Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*model.Subscription, error)
}

type subscriptionUC struct {
	subs    repository.SubscriptionRepository
	users   repository.UserRepository
	gateway adapter.ProviderGateway
	log     *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	users repository.UserRepository,
	gateway adapter.ProviderGateway,
	logger *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{subs: subs, users: users, gateway: gateway, log: logger}
}

func (u *subscriptionUC) CreateSubscription(ctx context.Context, userID string, plan model.SubscriptionPlan, currency model.Currency, paymentMethodID string) (*CreateSubscriptionResult, error) {
	defer logging.TraceDuration(logging.With(ctx, u.log), "SubscriptionUC.CreateSubscription")()

	if userID == "" || !model.ValidPlan(plan) || !model.ValidCurrency(currency) {
		return nil, domain.ErrInvalidArgument
	}

	amount, err := model.GetPrice(model.ProductSubscription, model.PriceTier(plan), currency)
	if err != nil {
		return nil, err
	}

	user, err := u.users.FindByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	customerID, err := u.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	sub, err := u.gateway.CreateSubscription(ctx, adapter.CreateSubscriptionRequest{
		CustomerID:      customerID,
		PlanName:        "JamDung Jobs " + string(plan) + " Plan",
		Amount:          amount,
		Currency:        currency,
		PaymentMethodID: paymentMethodID,
		Metadata: map[string]string{
			"userId": userID,
			"plan":   string(plan),
		},
	})
	if err != nil {
		u.log.Error().Err(err).Str("user_id", userID).Msg("provider subscription creation failed")
		return nil, err
	}

	now := time.Now()
	s := &model.Subscription{
		ID:                     uuid.NewString(),
		ExternalSubscriptionID: sub.ID,
		UserID:                 userID,
		Plan:                   plan,
		Amount:                 amount,
		Currency:               currency,
		Status:                 MapProviderSubscriptionStatus(sub.Status),
		CurrentPeriodStart:     sub.CurrentPeriodStart,
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		PlanFeatures:           model.FeaturesForPlan(plan),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := u.subs.Save(ctx, nil, s); err != nil {
		return nil, err
	}
	metrics.IncSubscription(string(s.Status))

	return &CreateSubscriptionResult{
		SubscriptionID: s.ID,
		ClientSecret:   sub.ClientSecret,
		Status:         s.Status,
	}, nil
}

// ensureCustomer returns the user's provider customer id, creating and
// persisting it the first time. The id is never recreated once set.
func (u *subscriptionUC) ensureCustomer(ctx context.Context, user *model.User) (string, error) {
	if user.ExternalCustomerID != nil && *user.ExternalCustomerID != "" {
		return *user.ExternalCustomerID, nil
	}
	customerID, err := u.gateway.CreateCustomer(ctx, user.Email, user.FullName(), map[string]string{"userId": user.ID})
	if err != nil {
		return "", err
	}
	if err := u.users.SetExternalCustomerID(ctx, nil, user.ID, customerID); err != nil {
		return "", err
	}
	return customerID, nil
}

func (u *subscriptionUC) CancelSubscription(ctx context.Context, subscriptionID string, cancelAtPeriodEnd bool) (*model.Subscription, error) {
	s, err := u.subs.FindByID(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	if s.Terminal() {
		return nil, domain.ErrInvalidState
	}

	if cancelAtPeriodEnd {
		if _, err := u.gateway.UpdateSubscription(ctx, s.ExternalSubscriptionID, true); err != nil {
			return nil, err
		}
		if err := u.subs.SetCancelAtPeriodEnd(ctx, nil, s.ID, true); err != nil {
			return nil, err
		}
		s.CancelAtPeriodEnd = true
		s.CanceledAt = nil
		return s, nil
	}

	if _, err := u.gateway.CancelSubscription(ctx, s.ExternalSubscriptionID); err != nil {
		return nil, err
	}
	now := time.Now()
	if err := u.subs.UpdateStatus(ctx, nil, s.ID, model.SubscriptionStatusCanceled, &now); err != nil {
		return nil, err
	}
	s.Status = model.SubscriptionStatusCanceled
	s.CanceledAt = &now
	metrics.IncSubscription("canceled")
	return s, nil
}

func (u *subscriptionUC) UpdatePlan(ctx context.Context, subscriptionID string, plan model.SubscriptionPlan) (*model.Subscription, error) {
	return nil, domain.ErrNotImplemented
}

func (u *subscriptionUC) GetSubscription(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	return u.subs.FindByID(ctx, nil, subscriptionID)
}

// MapProviderSubscriptionStatus maps a provider-native subscription status
// string onto the local enum. Unknown strings map to INCOMPLETE, the safest
// non-terminal state; webhook events will correct it.
func MapProviderSubscriptionStatus(s string) model.SubscriptionStatus {
	switch strings.ToLower(s) {
	case "active":
		return model.SubscriptionStatusActive
	case "trialing":
		return model.SubscriptionStatusTrialing
	case "past_due", "unpaid":
		return model.SubscriptionStatusPastDue
	case "canceled", "incomplete_expired":
		return model.SubscriptionStatusCanceled
	default:
		return model.SubscriptionStatusIncomplete
	}
}
