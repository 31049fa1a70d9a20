package retention

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// DraftState is a step of the voucher creation wizard
type DraftState string

const (
	DraftStateCompanySelection DraftState = "company_selection"
	DraftStateSupplierInfo     DraftState = "supplier_info"
	DraftStateInvoiceItems     DraftState = "invoice_items"
	DraftStateGenerated        DraftState = "generated"
)

// VoucherDraft holds the in-progress state of the voucher wizard. Transitions
// happen only on explicit user action; there are no timers or automatic
// advances. Generation is terminal.
type VoucherDraft struct {
	shared.OwnedAggregateRoot
	State         DraftState      `gorm:"type:varchar(30);not null;default:'company_selection'"`
	CompanyID     *uuid.UUID      `gorm:"type:uuid;index"`
	Subject       SubjectSnapshot `gorm:"embedded;embeddedPrefix:subject_"`
	RetentionRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Items         ItemList        `gorm:"type:jsonb;not null"`
	VoucherID     *uuid.UUID      `gorm:"type:uuid;index"` // Set once generated
}

// TableName returns the table name for GORM
func (VoucherDraft) TableName() string {
	return "voucher_drafts"
}

// NewVoucherDraft starts a wizard at the company selection step
func NewVoucherDraft(ownerID uuid.UUID) *VoucherDraft {
	return &VoucherDraft{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		State:              DraftStateCompanySelection,
		Items:              ItemList{},
	}
}

// NewEditDraft starts a wizard directly at the invoice items step, loaded
// with an existing voucher's data. Company and supplier steps are skipped
// and locked.
func NewEditDraft(ownerID uuid.UUID, v *RetentionVoucher) *VoucherDraft {
	companyID := v.CompanyID
	voucherID := v.ID
	return &VoucherDraft{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		State:              DraftStateInvoiceItems,
		CompanyID:          &companyID,
		Subject:            v.Subject,
		RetentionRate:      v.Agent.RetentionRate,
		Items:              v.Items,
		VoucherID:          &voucherID,
	}
}

// IsEdit reports whether the draft edits an existing voucher
func (d *VoucherDraft) IsEdit() bool {
	return d.VoucherID != nil && d.State != DraftStateGenerated
}

// SelectCompany records the chosen company and advances to the supplier step.
// The company's default retention rate is carried forward so the items step
// can pre-fill it.
func (d *VoucherDraft) SelectCompany(companyID uuid.UUID, defaultRetentionRate decimal.Decimal) error {
	if d.State != DraftStateCompanySelection {
		return shared.NewDomainError("INVALID_WIZARD_STATE", "Company can only be selected at the first step")
	}
	if companyID == uuid.Nil {
		return shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	d.CompanyID = &companyID
	d.RetentionRate = defaultRetentionRate
	d.State = DraftStateSupplierInfo
	d.touch()
	return nil
}

// SetSubject records the supplier data and advances to the items step
func (d *VoucherDraft) SetSubject(subject SubjectSnapshot) error {
	if d.State != DraftStateSupplierInfo {
		return shared.NewDomainError("INVALID_WIZARD_STATE", "Supplier data belongs to the second step")
	}
	if subject.Name == "" || subject.RIF == "" {
		return shared.NewDomainError("INVALID_SUBJECT", "Subject name and RIF are required")
	}
	d.Subject = subject
	d.State = DraftStateInvoiceItems
	d.touch()
	return nil
}

// Back moves one step backwards. Edit drafts cannot leave the items step
// since company and supplier are locked; a generated draft is terminal.
func (d *VoucherDraft) Back() error {
	switch d.State {
	case DraftStateSupplierInfo:
		d.State = DraftStateCompanySelection
	case DraftStateInvoiceItems:
		if d.IsEdit() {
			return shared.NewDomainError("INVALID_WIZARD_STATE", "Editing an issued voucher cannot go back past the items step")
		}
		d.State = DraftStateSupplierInfo
	default:
		return shared.NewDomainError("INVALID_WIZARD_STATE", "Cannot go back from the current step")
	}
	d.touch()
	return nil
}

// AddItem appends an invoice line. Only legal at the items step.
func (d *VoucherDraft) AddItem(item InvoiceItem) error {
	if d.State != DraftStateInvoiceItems {
		return shared.NewDomainError("INVALID_WIZARD_STATE", "Invoice items belong to the third step")
	}
	d.Items = append(d.Items, item)
	d.touch()
	return nil
}

// RemoveItem deletes the invoice line at the given position
func (d *VoucherDraft) RemoveItem(index int) error {
	if d.State != DraftStateInvoiceItems {
		return shared.NewDomainError("INVALID_WIZARD_STATE", "Invoice items belong to the third step")
	}
	if index < 0 || index >= len(d.Items) {
		return shared.NewDomainError("INVALID_ITEM_INDEX", "No invoice item at that position")
	}
	d.Items = append(d.Items[:index], d.Items[index+1:]...)
	d.touch()
	return nil
}

// CanGenerate reports whether the draft is ready to issue a voucher
func (d *VoucherDraft) CanGenerate() bool {
	return d.State == DraftStateInvoiceItems && d.CompanyID != nil && len(d.Items) > 0
}

// MarkGenerated transitions the draft to its terminal state, pointing at the
// issued voucher.
func (d *VoucherDraft) MarkGenerated(voucherID uuid.UUID) error {
	if !d.CanGenerate() {
		return shared.NewDomainError("INVALID_WIZARD_STATE", "Draft is not ready to generate a voucher")
	}
	d.VoucherID = &voucherID
	d.State = DraftStateGenerated
	d.touch()
	return nil
}

func (d *VoucherDraft) touch() {
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
}
