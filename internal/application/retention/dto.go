package retention

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simatecve/reten-facil-sub000/internal/domain/retention"
)

// ItemRequest is one invoice line as submitted by the wizard
type ItemRequest struct {
	InvoiceDate     time.Time        `json:"invoice_date" binding:"required"`
	InvoiceNumber   string           `json:"invoice_number" binding:"required"`
	ControlNumber   string           `json:"control_number" binding:"required"`
	DebitNoteNumber string           `json:"debit_note_number"`
	AffectedVoucher string           `json:"affected_voucher"`
	Type            string           `json:"transaction_type" binding:"required"`
	TotalAmount     decimal.Decimal  `json:"total_amount" binding:"required"`
	ExemptAmount    decimal.Decimal  `json:"exempt_amount"`
	TaxRate         decimal.Decimal  `json:"tax_rate"`
	RetentionRate   decimal.Decimal  `json:"retention_rate"`
	TaxBase         *decimal.Decimal `json:"tax_base"`
}

func (r ItemRequest) toInput(defaultRetentionRate decimal.Decimal) retention.NewItemInput {
	retRate := r.RetentionRate
	if retRate.IsZero() {
		retRate = defaultRetentionRate
	}
	return retention.NewItemInput{
		InvoiceDate:     r.InvoiceDate,
		InvoiceNumber:   r.InvoiceNumber,
		ControlNumber:   r.ControlNumber,
		DebitNoteNumber: r.DebitNoteNumber,
		AffectedVoucher: r.AffectedVoucher,
		Type:            retention.TransactionType(r.Type),
		TotalAmount:     r.TotalAmount,
		ExemptAmount:    r.ExemptAmount,
		TaxRate:         r.TaxRate,
		RetentionRate:   retRate,
		TaxBase:         r.TaxBase,
	}
}

// SupplierRequest is the retained subject data
type SupplierRequest struct {
	Name string `json:"name" binding:"required"`
	RIF  string `json:"rif" binding:"required,rif"`
}

// ItemResponse is one invoice line with its derived figures
type ItemResponse struct {
	InvoiceDate     time.Time       `json:"invoice_date"`
	InvoiceNumber   string          `json:"invoice_number"`
	ControlNumber   string          `json:"control_number"`
	DebitNoteNumber string          `json:"debit_note_number,omitempty"`
	AffectedVoucher string          `json:"affected_voucher,omitempty"`
	Type            string          `json:"transaction_type"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ExemptAmount    decimal.Decimal `json:"exempt_amount"`
	TaxBase         decimal.Decimal `json:"tax_base"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	RetentionRate   decimal.Decimal `json:"retention_rate"`
	RetainedAmount  decimal.Decimal `json:"retained_amount"`
}

func toItemResponse(item retention.InvoiceItem) ItemResponse {
	return ItemResponse{
		InvoiceDate:     item.InvoiceDate,
		InvoiceNumber:   item.InvoiceNumber,
		ControlNumber:   item.ControlNumber,
		DebitNoteNumber: item.DebitNoteNumber,
		AffectedVoucher: item.AffectedVoucher,
		Type:            string(item.Type),
		TotalAmount:     item.TotalAmount,
		ExemptAmount:    item.ExemptAmount,
		TaxBase:         item.TaxBase,
		TaxRate:         item.TaxRate,
		TaxAmount:       item.TaxAmount,
		RetentionRate:   item.RetentionRate,
		RetainedAmount:  item.RetainedAmount,
	}
}

// VoucherResponse is the API shape of an issued voucher
type VoucherResponse struct {
	ID            uuid.UUID       `json:"id"`
	VoucherNumber string          `json:"voucher_number"`
	IssuedAt      time.Time       `json:"issued_at"`
	FiscalPeriod  string          `json:"fiscal_period"`
	CompanyID     uuid.UUID       `json:"company_id"`
	AgentName     string          `json:"agent_name"`
	AgentRIF      string          `json:"agent_rif"`
	AgentAddress  string          `json:"agent_address"`
	SubjectName   string          `json:"subject_name"`
	SubjectRIF    string          `json:"subject_rif"`
	Items         []ItemResponse  `json:"items"`
	TotalPurchase decimal.Decimal `json:"total_purchase"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	TotalRetained decimal.Decimal `json:"total_retained"`
}

func toVoucherResponse(v *retention.RetentionVoucher) *VoucherResponse {
	items := make([]ItemResponse, 0, len(v.Items))
	for _, item := range v.Items {
		items = append(items, toItemResponse(item))
	}
	return &VoucherResponse{
		ID:            v.ID,
		VoucherNumber: v.VoucherNumber,
		IssuedAt:      v.IssuedAt,
		FiscalPeriod:  v.FiscalPeriod,
		CompanyID:     v.CompanyID,
		AgentName:     v.Agent.Name,
		AgentRIF:      v.Agent.RIF,
		AgentAddress:  v.Agent.FiscalAddress,
		SubjectName:   v.Subject.Name,
		SubjectRIF:    v.Subject.RIF,
		Items:         items,
		TotalPurchase: v.TotalPurchase,
		TotalTax:      v.TotalTax,
		TotalRetained: v.TotalRetained,
	}
}

// DraftResponse is the API shape of a wizard draft
type DraftResponse struct {
	ID            uuid.UUID       `json:"id"`
	State         string          `json:"state"`
	CompanyID     *uuid.UUID      `json:"company_id,omitempty"`
	SubjectName   string          `json:"subject_name,omitempty"`
	SubjectRIF    string          `json:"subject_rif,omitempty"`
	RetentionRate decimal.Decimal `json:"retention_rate"`
	Items         []ItemResponse  `json:"items"`
	VoucherID     *uuid.UUID      `json:"voucher_id,omitempty"`
	Editing       bool            `json:"editing"`
}

func toDraftResponse(d *retention.VoucherDraft) *DraftResponse {
	items := make([]ItemResponse, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, toItemResponse(item))
	}
	return &DraftResponse{
		ID:            d.ID,
		State:         string(d.State),
		CompanyID:     d.CompanyID,
		SubjectName:   d.Subject.Name,
		SubjectRIF:    d.Subject.RIF,
		RetentionRate: d.RetentionRate,
		Items:         items,
		VoucherID:     d.VoucherID,
		Editing:       d.IsEdit(),
	}
}
