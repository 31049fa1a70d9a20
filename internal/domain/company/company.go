// Package company holds the retention agent aggregate: the registered
// business that withholds IVA from its suppliers and issues vouchers.
package company

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// Valid default retention percentages per SENIAT rules
var (
	RetentionRate75  = decimal.NewFromInt(75)
	RetentionRate100 = decimal.NewFromInt(100)
)

// rifPattern matches Venezuelan RIF identifiers: a type letter, 8-9 digits
// and a check digit, dashes optional (J-12345678-9, V123456789).
var rifPattern = regexp.MustCompile(`^[VEJPG]-?\d{8,9}-?\d?$`)

// Company is the retention agent. The last correlation number is the
// per-company monotonically non-decreasing voucher sequence; it starts at 0
// and is only advanced by the voucher repository's allocation transaction.
type Company struct {
	shared.OwnedAggregateRoot
	Name                  string          `gorm:"type:varchar(200);not null"`
	RIF                   string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_company_owner_rif,priority:2"`
	FiscalAddress         string          `gorm:"type:text;not null"`
	DefaultRetentionRate  decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	LogoURL               string          `gorm:"type:varchar(500)"`
	LastCorrelationNumber int64           `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (Company) TableName() string {
	return "companies"
}

// NewCompany creates a retention agent owned by the given user
func NewCompany(ownerID uuid.UUID, name, rif, fiscalAddress string, retentionRate decimal.Decimal) (*Company, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Company name is required")
	}
	normalizedRIF, err := NormalizeRIF(rif)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(fiscalAddress) == "" {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Fiscal address is required")
	}
	if err := validateRetentionRate(retentionRate); err != nil {
		return nil, err
	}

	c := &Company{
		OwnedAggregateRoot:   shared.NewOwnedAggregateRoot(ownerID),
		Name:                 strings.TrimSpace(name),
		RIF:                  normalizedRIF,
		FiscalAddress:        strings.TrimSpace(fiscalAddress),
		DefaultRetentionRate: retentionRate,
	}
	c.AddDomainEvent(NewCompanyRegisteredEvent(c))
	return c, nil
}

// Update changes the company's editable fields. The correlation counter is
// deliberately not touched here.
func (c *Company) Update(name, rif, fiscalAddress string, retentionRate decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Company name is required")
	}
	normalizedRIF, err := NormalizeRIF(rif)
	if err != nil {
		return err
	}
	if strings.TrimSpace(fiscalAddress) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Fiscal address is required")
	}
	if err := validateRetentionRate(retentionRate); err != nil {
		return err
	}

	c.Name = strings.TrimSpace(name)
	c.RIF = normalizedRIF
	c.FiscalAddress = strings.TrimSpace(fiscalAddress)
	c.DefaultRetentionRate = retentionRate
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// SetLogoURL records the uploaded logo's public URL
func (c *Company) SetLogoURL(url string) {
	c.LogoURL = url
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// NormalizeRIF uppercases and validates a RIF, keeping the dashed form
func NormalizeRIF(rif string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(rif))
	if !rifPattern.MatchString(normalized) {
		return "", shared.NewDomainError("INVALID_RIF", "RIF must be a letter (V, E, J, P, G) followed by 8-9 digits and a check digit")
	}
	return normalized, nil
}

func validateRetentionRate(rate decimal.Decimal) error {
	if !rate.Equal(RetentionRate75) && !rate.Equal(RetentionRate100) {
		return shared.NewDomainError("INVALID_RETENTION_RATE", "Default retention rate must be 75 or 100")
	}
	return nil
}
