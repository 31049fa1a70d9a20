package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/simatecve/reten-facil-sub000/internal/domain/company"
	"github.com/simatecve/reten-facil-sub000/internal/domain/retention"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// sequenceAllocationAttempts bounds the conditional-update retry loop when
// concurrent creations race on the same company counter.
const sequenceAllocationAttempts = 5

// GormVoucherRepository implements retention.VoucherRepository using GORM
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewGormVoucherRepository creates a new GormVoucherRepository
func NewGormVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// CreateWithSequence atomically advances the company's correlation counter
// and inserts the voucher built from the allocated number. The counter
// advance is a conditional update on the previously read value; if another
// transaction advanced it first, the allocation re-reads and retries. The
// insert happens in the same transaction as the advance, so a failed insert
// never burns a number.
func (r *GormVoucherRepository) CreateWithSequence(ctx context.Context, companyID uuid.UUID, build retention.VoucherFactory) (*retention.RetentionVoucher, error) {
	var created *retention.RetentionVoucher

	for attempt := 0; attempt < sequenceAllocationAttempts; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var c company.Company
			if err := tx.First(&c, "id = ?", companyID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return shared.ErrNotFound
				}
				return err
			}

			next := c.LastCorrelationNumber + 1
			result := tx.Model(&company.Company{}).
				Where("id = ? AND last_correlation_number = ?", companyID, c.LastCorrelationNumber).
				Update("last_correlation_number", next)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.ErrConcurrencyConflict
			}

			voucher, err := build(next)
			if err != nil {
				return err
			}
			if err := tx.Create(voucher).Error; err != nil {
				return err
			}
			created = voucher
			return nil
		})
		if err == nil {
			return created, nil
		}
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			continue
		}
		return nil, err
	}
	return nil, shared.ErrConcurrencyConflict
}

// Update persists an edit of an existing voucher. Only item contents and
// totals change; the number, correlation and issue date stay untouched.
func (r *GormVoucherRepository) Update(ctx context.Context, voucher *retention.RetentionVoucher) error {
	result := r.db.WithContext(ctx).
		Model(voucher).
		Where("id = ?", voucher.ID).
		Updates(map[string]interface{}{
			"subject_name":   voucher.Subject.Name,
			"subject_rif":    voucher.Subject.RIF,
			"items":          voucher.Items,
			"total_purchase": voucher.TotalPurchase,
			"total_tax":      voucher.TotalTax,
			"total_retained": voucher.TotalRetained,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a voucher by its ID
func (r *GormVoucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*retention.RetentionVoucher, error) {
	var voucher retention.RetentionVoucher
	if err := r.db.WithContext(ctx).First(&voucher, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

// FindByIDForOwner finds a voucher by ID within an owner account
func (r *GormVoucherRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*retention.RetentionVoucher, error) {
	var voucher retention.RetentionVoucher
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&voucher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

// FindAllForOwner lists an owner's vouchers with pagination and search
func (r *GormVoucherRepository) FindAllForOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]retention.RetentionVoucher, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&retention.RetentionVoucher{}).
		Where("owner_id = ?", ownerID)
	return r.list(query, filter)
}

// FindAllForCompany lists vouchers issued by one company of an owner
func (r *GormVoucherRepository) FindAllForCompany(ctx context.Context, ownerID, companyID uuid.UUID, filter shared.Filter) ([]retention.RetentionVoucher, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&retention.RetentionVoucher{}).
		Where("owner_id = ? AND company_id = ?", ownerID, companyID)
	return r.list(query, filter)
}

func (r *GormVoucherRepository) list(query *gorm.DB, filter shared.Filter) ([]retention.RetentionVoucher, int64, error) {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"voucher_number ILIKE ? OR subject_name ILIKE ? OR subject_rif ILIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, voucherSortFields, "issued_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var vouchers []retention.RetentionVoucher
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&vouchers).Error; err != nil {
		return nil, 0, err
	}
	return vouchers, total, nil
}

// CountForOwnerSince counts vouchers issued by an owner from the given instant
func (r *GormVoucherRepository) CountForOwnerSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&retention.RetentionVoucher{}).
		Where("owner_id = ? AND issued_at >= ?", ownerID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a voucher owned by the given account. The company counter
// is never decremented, so the sequence stays monotonic.
func (r *GormVoucherRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&retention.RetentionVoucher{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ retention.VoucherRepository = (*GormVoucherRepository)(nil)
