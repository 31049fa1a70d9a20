// Package retention implements the voucher wizard and issued-voucher use
// cases on top of the retention domain.
package retention

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simatecve/reten-facil-sub000/internal/domain/billing"
	"github.com/simatecve/reten-facil-sub000/internal/domain/company"
	"github.com/simatecve/reten-facil-sub000/internal/domain/retention"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// PlanGuard answers whether the owner's plan admits one more voucher
type PlanGuard interface {
	CurrentPlan(ctx context.Context, ownerID uuid.UUID) (*billing.Plan, error)
}

// Clock abstracts the issue timestamp so tests can pin the period
type Clock func() time.Time

// VoucherService drives the wizard and voucher lifecycle
type VoucherService struct {
	voucherRepo retention.VoucherRepository
	draftRepo   retention.DraftRepository
	companyRepo company.Repository
	planGuard   PlanGuard
	now         Clock
	logger      *zap.Logger
}

// NewVoucherService creates a new voucher service
func NewVoucherService(
	voucherRepo retention.VoucherRepository,
	draftRepo retention.DraftRepository,
	companyRepo company.Repository,
	planGuard PlanGuard,
	logger *zap.Logger,
) *VoucherService {
	return &VoucherService{
		voucherRepo: voucherRepo,
		draftRepo:   draftRepo,
		companyRepo: companyRepo,
		planGuard:   planGuard,
		now:         time.Now,
		logger:      logger,
	}
}

// WithClock overrides the time source, for tests
func (s *VoucherService) WithClock(clock Clock) *VoucherService {
	s.now = clock
	return s
}

// StartDraft opens a fresh wizard at the company selection step
func (s *VoucherService) StartDraft(ctx context.Context, ownerID uuid.UUID) (*DraftResponse, error) {
	draft := retention.NewVoucherDraft(ownerID)
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return nil, err
	}
	return toDraftResponse(draft), nil
}

// StartEditDraft opens a wizard at the items step loaded with an issued
// voucher's data. Company and supplier steps are skipped.
func (s *VoucherService) StartEditDraft(ctx context.Context, ownerID, voucherID uuid.UUID) (*DraftResponse, error) {
	v, err := s.voucherRepo.FindByIDForOwner(ctx, ownerID, voucherID)
	if err != nil {
		return nil, err
	}
	draft := retention.NewEditDraft(ownerID, v)
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return nil, err
	}
	return toDraftResponse(draft), nil
}

// GetDraft returns a wizard draft
func (s *VoucherService) GetDraft(ctx context.Context, ownerID, draftID uuid.UUID) (*DraftResponse, error) {
	draft, err := s.draftRepo.FindByIDForOwner(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}
	return toDraftResponse(draft), nil
}

// SelectCompany records the chosen company on the draft and seeds the
// retention rate from the company default.
func (s *VoucherService) SelectCompany(ctx context.Context, ownerID, draftID, companyID uuid.UUID) (*DraftResponse, error) {
	draft, err := s.draftRepo.FindByIDForOwner(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}
	c, err := s.companyRepo.FindByIDForOwner(ctx, ownerID, companyID)
	if err != nil {
		return nil, err
	}
	if err := draft.SelectCompany(c.ID, c.DefaultRetentionRate); err != nil {
		return nil, err
	}
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return nil, err
	}
	return toDraftResponse(draft), nil
}

// SetSupplier records the retained subject on the draft
func (s *VoucherService) SetSupplier(ctx context.Context, ownerID, draftID uuid.UUID, req SupplierRequest) (*DraftResponse, error) {
	draft, err := s.draftRepo.FindByIDForOwner(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}
	rif, err := company.NormalizeRIF(req.RIF)
	if err != nil {
		return nil, err
	}
	if err := draft.SetSubject(retention.SubjectSnapshot{Name: req.Name, RIF: rif}); err != nil {
		return nil, err
	}
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return nil, err
	}
	return toDraftResponse(draft), nil
}

// AddItem validates one invoice line and appends it to the draft. Missing
// required fields surface as a validation error; nothing is silently dropped.
func (s *VoucherService) AddItem(ctx context.Context, ownerID, draftID uuid.UUID, req ItemRequest) (*DraftResponse, error) {
	draft, err := s.draftRepo.FindByIDForOwner(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}
	item, err := retention.NewInvoiceItem(req.toInput(draft.RetentionRate))
	if err != nil {
		return nil, err
	}
	if err := draft.AddItem(*item); err != nil {
		return nil, err
	}
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return nil, err
	}
	return toDraftResponse(draft), nil
}

// RemoveItem deletes one invoice line from the draft
func (s *VoucherService) RemoveItem(ctx context.Context, ownerID, draftID uuid.UUID, index int) (*DraftResponse, error) {
	draft, err := s.draftRepo.FindByIDForOwner(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}
	if err := draft.RemoveItem(index); err != nil {
		return nil, err
	}
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return nil, err
	}
	return toDraftResponse(draft), nil
}

// Back moves the wizard one step backwards
func (s *VoucherService) Back(ctx context.Context, ownerID, draftID uuid.UUID) (*DraftResponse, error) {
	draft, err := s.draftRepo.FindByIDForOwner(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}
	if err := draft.Back(); err != nil {
		return nil, err
	}
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return nil, err
	}
	return toDraftResponse(draft), nil
}

// Generate finishes the wizard. For a new voucher it allocates the next
// correlation number atomically and issues the voucher; for an edit it
// replaces the existing voucher's items, never its number or date.
func (s *VoucherService) Generate(ctx context.Context, ownerID, draftID uuid.UUID) (*VoucherResponse, error) {
	draft, err := s.draftRepo.FindByIDForOwner(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}
	if !draft.CanGenerate() {
		return nil, shared.NewDomainError("INVALID_WIZARD_STATE", "Draft is not ready to generate a voucher")
	}

	var voucher *retention.RetentionVoucher
	if draft.IsEdit() {
		voucher, err = s.applyEdit(ctx, ownerID, draft)
	} else {
		voucher, err = s.issueNew(ctx, ownerID, draft)
	}
	if err != nil {
		return nil, err
	}

	if err := draft.MarkGenerated(voucher.ID); err != nil {
		return nil, err
	}
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		// The voucher is already committed; a stale draft is recoverable.
		s.logger.Warn("voucher issued but draft state not persisted",
			zap.String("voucher_id", voucher.ID.String()), zap.Error(err))
	}
	return toVoucherResponse(voucher), nil
}

func (s *VoucherService) issueNew(ctx context.Context, ownerID uuid.UUID, draft *retention.VoucherDraft) (*retention.RetentionVoucher, error) {
	plan, err := s.planGuard.CurrentPlan(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	issuedAt := s.now()
	monthStart := time.Date(issuedAt.Year(), issuedAt.Month(), 1, 0, 0, 0, 0, issuedAt.Location())
	issuedThisMonth, err := s.voucherRepo.CountForOwnerSince(ctx, ownerID, monthStart)
	if err != nil {
		return nil, err
	}
	if !plan.AllowsVouchers(issuedThisMonth) {
		return nil, shared.ErrPlanLimitReached
	}

	c, err := s.companyRepo.FindByIDForOwner(ctx, ownerID, *draft.CompanyID)
	if err != nil {
		return nil, err
	}
	agent := retention.AgentSnapshot{
		Name:          c.Name,
		RIF:           c.RIF,
		FiscalAddress: c.FiscalAddress,
		RetentionRate: draft.RetentionRate,
		LogoURL:       c.LogoURL,
	}

	voucher, err := s.voucherRepo.CreateWithSequence(ctx, c.ID, func(correlation int64) (*retention.RetentionVoucher, error) {
		return retention.NewRetentionVoucher(ownerID, c.ID, agent, draft.Subject, correlation, issuedAt, draft.Items)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("retention voucher issued",
		zap.String("voucher_number", voucher.VoucherNumber),
		zap.String("company_id", c.ID.String()),
		zap.Int("items", len(voucher.Items)))
	return voucher, nil
}

func (s *VoucherService) applyEdit(ctx context.Context, ownerID uuid.UUID, draft *retention.VoucherDraft) (*retention.RetentionVoucher, error) {
	voucher, err := s.voucherRepo.FindByIDForOwner(ctx, ownerID, *draft.VoucherID)
	if err != nil {
		return nil, err
	}
	if err := voucher.ReplaceItems(draft.Items); err != nil {
		return nil, err
	}
	if err := s.voucherRepo.Update(ctx, voucher); err != nil {
		return nil, err
	}
	s.logger.Info("retention voucher edited",
		zap.String("voucher_number", voucher.VoucherNumber),
		zap.Int("items", len(voucher.Items)))
	return voucher, nil
}

// UpdateItems edits an issued voucher's lines directly, outside the wizard.
// The voucher number and date are immutable.
func (s *VoucherService) UpdateItems(ctx context.Context, ownerID, voucherID uuid.UUID, reqs []ItemRequest) (*VoucherResponse, error) {
	voucher, err := s.voucherRepo.FindByIDForOwner(ctx, ownerID, voucherID)
	if err != nil {
		return nil, err
	}
	items := make([]retention.InvoiceItem, 0, len(reqs))
	for _, req := range reqs {
		item, err := retention.NewInvoiceItem(req.toInput(voucher.Agent.RetentionRate))
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := voucher.ReplaceItems(items); err != nil {
		return nil, err
	}
	if err := s.voucherRepo.Update(ctx, voucher); err != nil {
		return nil, err
	}
	return toVoucherResponse(voucher), nil
}

// Get returns one issued voucher
func (s *VoucherService) Get(ctx context.Context, ownerID, voucherID uuid.UUID) (*VoucherResponse, error) {
	voucher, err := s.voucherRepo.FindByIDForOwner(ctx, ownerID, voucherID)
	if err != nil {
		return nil, err
	}
	return toVoucherResponse(voucher), nil
}

// Printable returns the full voucher aggregate for document rendering
func (s *VoucherService) Printable(ctx context.Context, ownerID, voucherID uuid.UUID) (*retention.RetentionVoucher, error) {
	return s.voucherRepo.FindByIDForOwner(ctx, ownerID, voucherID)
}

// List returns the owner's vouchers, optionally scoped to a company
func (s *VoucherService) List(ctx context.Context, ownerID uuid.UUID, companyID *uuid.UUID, filter shared.Filter) ([]VoucherResponse, int64, error) {
	var (
		vouchers []retention.RetentionVoucher
		total    int64
		err      error
	)
	if companyID != nil {
		vouchers, total, err = s.voucherRepo.FindAllForCompany(ctx, ownerID, *companyID, filter)
	} else {
		vouchers, total, err = s.voucherRepo.FindAllForOwner(ctx, ownerID, filter)
	}
	if err != nil {
		return nil, 0, err
	}
	out := make([]VoucherResponse, 0, len(vouchers))
	for i := range vouchers {
		out = append(out, *toVoucherResponse(&vouchers[i]))
	}
	return out, total, nil
}

// Delete removes an issued voucher. The company counter is not rolled back;
// the sequence stays monotonic.
func (s *VoucherService) Delete(ctx context.Context, ownerID, voucherID uuid.UUID) error {
	return s.voucherRepo.Delete(ctx, ownerID, voucherID)
}
