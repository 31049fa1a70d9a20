package retention

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// VoucherFactory builds a voucher once the repository has allocated the next
// correlation number for the company. It runs inside the allocation
// transaction; a returned error rolls the allocation back.
type VoucherFactory func(correlation int64) (*RetentionVoucher, error)

// VoucherRepository persists retention vouchers and owns the sequence
// allocation protocol.
type VoucherRepository interface {
	// CreateWithSequence atomically advances the company's correlation
	// counter and inserts the voucher built from the allocated number.
	// The counter advance uses a conditional update and retries on
	// conflict, so two concurrent creations from counter N yield N+1 and
	// N+2, never a duplicate. A failed insert never advances the counter.
	CreateWithSequence(ctx context.Context, companyID uuid.UUID, build VoucherFactory) (*RetentionVoucher, error)

	// Update persists an edit of an existing voucher. The voucher number,
	// correlation and issue date are never modified by an update.
	Update(ctx context.Context, voucher *RetentionVoucher) error

	FindByID(ctx context.Context, id uuid.UUID) (*RetentionVoucher, error)
	FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*RetentionVoucher, error)
	FindAllForOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]RetentionVoucher, int64, error)
	FindAllForCompany(ctx context.Context, ownerID, companyID uuid.UUID, filter shared.Filter) ([]RetentionVoucher, int64, error)

	// CountForOwnerSince counts vouchers issued by an owner from the given
	// instant, used for monthly plan-limit enforcement.
	CountForOwnerSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int64, error)

	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

// DraftRepository persists in-progress wizard drafts
type DraftRepository interface {
	Save(ctx context.Context, draft *VoucherDraft) error
	FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*VoucherDraft, error)
	FindOpenForOwner(ctx context.Context, ownerID uuid.UUID) ([]VoucherDraft, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}
