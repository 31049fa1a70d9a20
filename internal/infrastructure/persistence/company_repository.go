package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/simatecve/reten-facil-sub000/internal/domain/company"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// GormCompanyRepository implements company.Repository using GORM
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewGormCompanyRepository creates a new GormCompanyRepository
func NewGormCompanyRepository(db *gorm.DB) *GormCompanyRepository {
	return &GormCompanyRepository{db: db}
}

// Save creates or updates a company
func (r *GormCompanyRepository) Save(ctx context.Context, c *company.Company) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// FindByID finds a company by its ID
func (r *GormCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	var c company.Company
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByIDForOwner finds a company by ID within an owner account
func (r *GormCompanyRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*company.Company, error) {
	var c company.Company
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindAllForOwner finds all companies registered by an owner account
func (r *GormCompanyRepository) FindAllForOwner(ctx context.Context, ownerID uuid.UUID) ([]company.Company, error) {
	var companies []company.Company
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

// CountForOwner counts the companies registered by an owner account
func (r *GormCompanyRepository) CountForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&company.Company{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByRIFForOwner checks if the owner already registered a company with the RIF
func (r *GormCompanyRepository) ExistsByRIFForOwner(ctx context.Context, ownerID uuid.UUID, rif string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&company.Company{}).
		Where("owner_id = ? AND rif = ?", ownerID, rif).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes a company owned by the given account
func (r *GormCompanyRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&company.Company{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ company.Repository = (*GormCompanyRepository)(nil)
