package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/simatecve/reten-facil-sub000/internal/domain/billing"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// GormPlanRepository implements billing.PlanRepository using GORM
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// Save creates or updates a plan
func (r *GormPlanRepository) Save(ctx context.Context, plan *billing.Plan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

// FindByID finds a plan by ID
func (r *GormPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	var plan billing.Plan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// FindByName finds a plan by its name
func (r *GormPlanRepository) FindByName(ctx context.Context, name string) (*billing.Plan, error) {
	var plan billing.Plan
	if err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// FindAll lists plans, optionally restricted to active ones
func (r *GormPlanRepository) FindAll(ctx context.Context, activeOnly bool) ([]billing.Plan, error) {
	query := r.db.WithContext(ctx).Model(&billing.Plan{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var plans []billing.Plan
	if err := query.Order("monthly_price ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

var _ billing.PlanRepository = (*GormPlanRepository)(nil)
