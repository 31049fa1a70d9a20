package retention

import (
	"fmt"
	"time"
)

// Spanish month names for the fiscal period label. SENIAT filings use the
// localized full month name.
var spanishMonths = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// FormatVoucherNumber builds the legal voucher number from the allocation
// date and the company's correlation number: YYYYMM followed by the
// correlation zero-padded to 8 digits, e.g. 20250300000146.
func FormatVoucherNumber(issuedAt time.Time, correlation int64) string {
	return fmt.Sprintf("%04d%02d%08d", issuedAt.Year(), int(issuedAt.Month()), correlation)
}

// FiscalPeriodLabel returns the localized "month year" label of the period a
// voucher is filed under, e.g. "Marzo 2025".
func FiscalPeriodLabel(issuedAt time.Time) string {
	return fmt.Sprintf("%s %d", spanishMonths[issuedAt.Month()-1], issuedAt.Year())
}
