package retention

import (
	"github.com/shopspring/decimal"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// Default rates per SENIAT providencia 0049: 16% IVA, 75% retention
// for ordinary special taxpayers.
var (
	DefaultTaxRate       = decimal.NewFromInt(16)
	DefaultRetentionRate = decimal.NewFromInt(75)

	oneHundred = decimal.NewFromInt(100)
)

// StoragePrecision is the decimal precision applied to persisted amounts.
// Intermediate computation keeps full precision to avoid cumulative drift.
const StoragePrecision = 2

// CalculationInput carries the raw figures of a single invoice line.
type CalculationInput struct {
	// TotalAmount is the tax-inclusive invoice total. Must be non-negative.
	TotalAmount decimal.Decimal
	// TaxRate is the IVA rate in percent (16 for the general aliquot).
	TaxRate decimal.Decimal
	// RetentionRate is the withholding rate in percent, 75 or 100.
	RetentionRate decimal.Decimal
	// TaxBase optionally overrides the derived base, for invoices that
	// state it explicitly (mixed exempt/taxed lines).
	TaxBase *decimal.Decimal
}

// CalculationResult holds the derived tax figures of an invoice line.
type CalculationResult struct {
	TaxBase        decimal.Decimal
	TaxAmount      decimal.Decimal
	RetainedAmount decimal.Decimal
}

// Calculate derives the tax base, tax amount and retained amount for one
// invoice line. Pure: no state is read or written.
//
//	base     = explicit base, or total / (1 + taxRate/100)
//	tax      = total - base
//	retained = tax * retentionRate/100
func Calculate(input CalculationInput) (*CalculationResult, error) {
	if input.TotalAmount.IsNegative() {
		return nil, shared.NewDomainError("NEGATIVE_AMOUNT", "Invoice total cannot be negative")
	}
	if input.TaxRate.IsNegative() || input.TaxRate.GreaterThan(oneHundred) {
		return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate must be between 0 and 100")
	}
	if input.RetentionRate.IsNegative() || input.RetentionRate.GreaterThan(oneHundred) {
		return nil, shared.NewDomainError("INVALID_RETENTION_RATE", "Retention rate must be between 0 and 100")
	}

	if input.TotalAmount.IsZero() {
		return &CalculationResult{
			TaxBase:        decimal.Zero,
			TaxAmount:      decimal.Zero,
			RetainedAmount: decimal.Zero,
		}, nil
	}

	var base decimal.Decimal
	if input.TaxBase != nil {
		base = *input.TaxBase
		if base.IsNegative() {
			return nil, shared.NewDomainError("INVALID_TAX_BASE", "Tax base cannot be negative")
		}
		if base.GreaterThan(input.TotalAmount) {
			return nil, shared.NewDomainError("INVALID_TAX_BASE", "Tax base cannot exceed the invoice total")
		}
	} else {
		divisor := decimal.NewFromInt(1).Add(input.TaxRate.Div(oneHundred))
		base = input.TotalAmount.Div(divisor)
	}

	tax := input.TotalAmount.Sub(base)
	retained := tax.Mul(input.RetentionRate.Div(oneHundred))

	return &CalculationResult{
		TaxBase:        base,
		TaxAmount:      tax,
		RetainedAmount: retained,
	}, nil
}

// RoundForStorage normalizes a result to the persistence precision.
func (r *CalculationResult) RoundForStorage() *CalculationResult {
	return &CalculationResult{
		TaxBase:        r.TaxBase.Round(StoragePrecision),
		TaxAmount:      r.TaxAmount.Round(StoragePrecision),
		RetainedAmount: r.RetainedAmount.Round(StoragePrecision),
	}
}
