package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/simatecve/reten-facil-sub000/internal/domain/retention"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// GormDraftRepository implements retention.DraftRepository using GORM
type GormDraftRepository struct {
	db *gorm.DB
}

// NewGormDraftRepository creates a new GormDraftRepository
func NewGormDraftRepository(db *gorm.DB) *GormDraftRepository {
	return &GormDraftRepository{db: db}
}

// Save creates or updates a wizard draft
func (r *GormDraftRepository) Save(ctx context.Context, draft *retention.VoucherDraft) error {
	return r.db.WithContext(ctx).Save(draft).Error
}

// FindByIDForOwner finds a draft by ID within an owner account
func (r *GormDraftRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*retention.VoucherDraft, error) {
	var draft retention.VoucherDraft
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&draft).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &draft, nil
}

// FindOpenForOwner lists an owner's drafts that have not been generated yet
func (r *GormDraftRepository) FindOpenForOwner(ctx context.Context, ownerID uuid.UUID) ([]retention.VoucherDraft, error) {
	var drafts []retention.VoucherDraft
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND state <> ?", ownerID, retention.DraftStateGenerated).
		Order("updated_at DESC").
		Find(&drafts).Error; err != nil {
		return nil, err
	}
	return drafts, nil
}

// Delete removes a draft owned by the given account
func (r *GormDraftRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&retention.VoucherDraft{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ retention.DraftRepository = (*GormDraftRepository)(nil)
