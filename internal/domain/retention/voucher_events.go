package retention

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// VoucherIssuedEvent is raised when a new retention voucher is issued
type VoucherIssuedEvent struct {
	shared.BaseDomainEvent
	VoucherID     uuid.UUID       `json:"voucher_id"`
	VoucherNumber string          `json:"voucher_number"`
	CompanyID     uuid.UUID       `json:"company_id"`
	SubjectRIF    string          `json:"subject_rif"`
	FiscalPeriod  string          `json:"fiscal_period"`
	TotalRetained decimal.Decimal `json:"total_retained"`
	IssuedAt      time.Time       `json:"issued_at"`
}

// EventType returns the event type name
func (e *VoucherIssuedEvent) EventType() string {
	return "RetentionVoucherIssued"
}

// NewVoucherIssuedEvent creates a new VoucherIssuedEvent
func NewVoucherIssuedEvent(v *RetentionVoucher) *VoucherIssuedEvent {
	return &VoucherIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("RetentionVoucherIssued", "RetentionVoucher", v.ID),
		VoucherID:       v.ID,
		VoucherNumber:   v.VoucherNumber,
		CompanyID:       v.CompanyID,
		SubjectRIF:      v.Subject.RIF,
		FiscalPeriod:    v.FiscalPeriod,
		TotalRetained:   v.TotalRetained,
		IssuedAt:        v.IssuedAt,
	}
}

// VoucherItemsReplacedEvent is raised when an issued voucher's lines are edited
type VoucherItemsReplacedEvent struct {
	shared.BaseDomainEvent
	VoucherID     uuid.UUID       `json:"voucher_id"`
	VoucherNumber string          `json:"voucher_number"`
	ItemCount     int             `json:"item_count"`
	TotalRetained decimal.Decimal `json:"total_retained"`
}

// EventType returns the event type name
func (e *VoucherItemsReplacedEvent) EventType() string {
	return "RetentionVoucherItemsReplaced"
}

// NewVoucherItemsReplacedEvent creates a new VoucherItemsReplacedEvent
func NewVoucherItemsReplacedEvent(v *RetentionVoucher) *VoucherItemsReplacedEvent {
	return &VoucherItemsReplacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("RetentionVoucherItemsReplaced", "RetentionVoucher", v.ID),
		VoucherID:       v.ID,
		VoucherNumber:   v.VoucherNumber,
		ItemCount:       len(v.Items),
		TotalRetained:   v.TotalRetained,
	}
}
