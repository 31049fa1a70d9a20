package dto

import (
	"net/http"
	"strings"
)

// Transport-level error codes. Domain errors keep their own codes and are
// mapped to HTTP statuses by GetHTTPStatus.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
)

// errorCodeHTTPStatus maps the error codes the services emit to HTTP statuses.
// Codes not listed fall through to the prefix rules in GetHTTPStatus.
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeRateLimited: http.StatusTooManyRequests,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	// Identity
	"UNAUTHORIZED":        http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"INVALID_TOKEN":       http.StatusUnauthorized,
	"TOKEN_EXPIRED":       http.StatusUnauthorized,
	"TOKEN_REVOKED":       http.StatusUnauthorized,
	"ACCOUNT_SUSPENDED":   http.StatusForbidden,
	"FORBIDDEN":           http.StatusForbidden,
	"WEAK_PASSWORD":       http.StatusUnprocessableEntity,

	// Resources
	"NOT_FOUND":            http.StatusNotFound,
	"ITEM_NOT_FOUND":       http.StatusNotFound,
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,

	// Billing
	"PLAN_LIMIT_REACHED":    http.StatusUnprocessableEntity,
	"PLAN_INACTIVE":         http.StatusUnprocessableEntity,
	"FEATURE_NOT_AVAILABLE": http.StatusUnprocessableEntity,
	"TRIAL_PLAN_MISSING":    http.StatusUnprocessableEntity,
	"ALREADY_PAID":          http.StatusConflict,
	"ALREADY_ACTIVE":        http.StatusConflict,

	// Voucher wizard
	"INVALID_WIZARD_STATE": http.StatusUnprocessableEntity,
	"EMPTY_VOUCHER":        http.StatusUnprocessableEntity,
	"INVALID_STATE":        http.StatusUnprocessableEntity,
}

// GetHTTPStatus resolves an error code to an HTTP status. Validation codes
// the domain layer mints on the fly (INVALID_RIF, INVALID_INVOICE_NUMBER, ...)
// all answer 422 without each needing a map entry.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusUnprocessableEntity
	case strings.HasPrefix(code, "ALREADY_"):
		return http.StatusConflict
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
