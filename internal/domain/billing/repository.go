package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// PlanRepository persists subscription plans
type PlanRepository interface {
	Save(ctx context.Context, plan *Plan) error
	FindByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	FindByName(ctx context.Context, name string) (*Plan, error)
	FindAll(ctx context.Context, activeOnly bool) ([]Plan, error)
}

// SubscriptionRepository persists subscriptions
type SubscriptionRepository interface {
	Save(ctx context.Context, sub *Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	// FindCurrentForOwner returns the owner's most recent subscription.
	FindCurrentForOwner(ctx context.Context, ownerID uuid.UUID) (*Subscription, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Subscription, int64, error)
	FindPendingPayments(ctx context.Context, filter shared.Filter) ([]Subscription, int64, error)
}
