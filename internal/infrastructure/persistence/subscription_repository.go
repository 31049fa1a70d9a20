package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/simatecve/reten-facil-sub000/internal/domain/billing"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// GormSubscriptionRepository implements billing.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// Save creates or updates a subscription
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

// FindByID finds a subscription by ID
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindCurrentForOwner returns the owner's most recent subscription
func (r *GormSubscriptionRepository) FindCurrentForOwner(ctx context.Context, ownerID uuid.UUID) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindAll lists subscriptions for the back office
func (r *GormSubscriptionRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Subscription, int64, error) {
	query := r.db.WithContext(ctx).Model(&billing.Subscription{})
	return r.list(query, filter)
}

// FindPendingPayments lists subscriptions with a reported payment awaiting review
func (r *GormSubscriptionRepository) FindPendingPayments(ctx context.Context, filter shared.Filter) ([]billing.Subscription, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&billing.Subscription{}).
		Where("payment_status = ? AND payment_reference <> ''", billing.PaymentStatusPending)
	return r.list(query, filter)
}

func (r *GormSubscriptionRepository) list(query *gorm.DB, filter shared.Filter) ([]billing.Subscription, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, subscriptionSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var subs []billing.Subscription
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&subs).Error; err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
