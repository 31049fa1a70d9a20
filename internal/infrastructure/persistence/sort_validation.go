package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is empty or not whitelisted.
// User input is never interpolated into ORDER BY directly.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// voucherSortFields contains allowed sort fields for retention vouchers
var voucherSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"voucher_number": true,
	"issued_at":      true,
	"fiscal_year":    true,
	"fiscal_month":   true,
	"subject_name":   true,
	"total_retained": true,
}

// subscriptionSortFields contains allowed sort fields for subscriptions
var subscriptionSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"status":         true,
	"payment_status": true,
	"period_start":   true,
	"period_end":     true,
}
