package retention

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// TransactionType is the SENIAT operation code of an invoice line.
type TransactionType string

const (
	// TransactionRegistration records an original invoice (code 01).
	TransactionRegistration TransactionType = "01-REG"
	// TransactionComplement adjusts a previously declared invoice (code 02).
	TransactionComplement TransactionType = "02-COMP"
	// TransactionAnnulment voids a previously declared invoice (code 03).
	TransactionAnnulment TransactionType = "03-ANU"
)

// IsValid reports whether the transaction type is a known SENIAT code
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionRegistration, TransactionComplement, TransactionAnnulment:
		return true
	}
	return false
}

// InvoiceItem is one line of a retention voucher: a supplier invoice with
// its derived tax figures. Items are stored as an ordered JSON blob on the
// voucher row, so they carry json tags rather than their own table.
type InvoiceItem struct {
	InvoiceDate     time.Time       `json:"invoice_date"`
	InvoiceNumber   string          `json:"invoice_number"`
	ControlNumber   string          `json:"control_number"`
	DebitNoteNumber string          `json:"debit_note_number,omitempty"`
	AffectedVoucher string          `json:"affected_voucher,omitempty"`
	Type            TransactionType `json:"transaction_type"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ExemptAmount    decimal.Decimal `json:"exempt_amount"`
	TaxBase         decimal.Decimal `json:"tax_base"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	RetentionRate   decimal.Decimal `json:"retention_rate"`
	RetainedAmount  decimal.Decimal `json:"retained_amount"`
}

// NewItemInput carries the raw fields for building an invoice item.
type NewItemInput struct {
	InvoiceDate     time.Time
	InvoiceNumber   string
	ControlNumber   string
	DebitNoteNumber string
	AffectedVoucher string
	Type            TransactionType
	TotalAmount     decimal.Decimal
	ExemptAmount    decimal.Decimal
	TaxRate         decimal.Decimal
	RetentionRate   decimal.Decimal
	// TaxBase overrides the derived base when the invoice states it.
	TaxBase *decimal.Decimal
}

// NewInvoiceItem validates the input and derives the tax figures through the
// retention calculator, rounding to the storage precision.
func NewInvoiceItem(input NewItemInput) (*InvoiceItem, error) {
	if input.InvoiceDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_INVOICE_DATE", "Invoice date is required")
	}
	if input.InvoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number is required")
	}
	if input.ControlNumber == "" {
		return nil, shared.NewDomainError("INVALID_CONTROL_NUMBER", "Control number is required")
	}
	if !input.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Transaction type is not a valid SENIAT code")
	}
	if input.ExemptAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_EXEMPT_AMOUNT", "Exempt amount cannot be negative")
	}
	if input.Type != TransactionRegistration && input.AffectedVoucher == "" {
		return nil, shared.NewDomainError("AFFECTED_VOUCHER_REQUIRED",
			"Complement and annulment lines must reference the affected voucher")
	}

	taxRate := input.TaxRate
	if taxRate.IsZero() {
		taxRate = DefaultTaxRate
	}
	retentionRate := input.RetentionRate
	if retentionRate.IsZero() {
		retentionRate = DefaultRetentionRate
	}

	result, err := Calculate(CalculationInput{
		TotalAmount:   input.TotalAmount,
		TaxRate:       taxRate,
		RetentionRate: retentionRate,
		TaxBase:       input.TaxBase,
	})
	if err != nil {
		return nil, err
	}
	rounded := result.RoundForStorage()

	return &InvoiceItem{
		InvoiceDate:     input.InvoiceDate,
		InvoiceNumber:   input.InvoiceNumber,
		ControlNumber:   input.ControlNumber,
		DebitNoteNumber: input.DebitNoteNumber,
		AffectedVoucher: input.AffectedVoucher,
		Type:            input.Type,
		TotalAmount:     input.TotalAmount.Round(StoragePrecision),
		ExemptAmount:    input.ExemptAmount.Round(StoragePrecision),
		TaxBase:         rounded.TaxBase,
		TaxRate:         taxRate,
		TaxAmount:       rounded.TaxAmount,
		RetentionRate:   retentionRate,
		RetainedAmount:  rounded.RetainedAmount,
	}, nil
}
