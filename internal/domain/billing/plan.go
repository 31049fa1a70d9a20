// Package billing holds subscription plans and the back-office billing flow:
// users report manual payments with a proof document, superadmins verify them.
package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// PlanFeatures flags the AI capabilities a plan unlocks
type PlanFeatures struct {
	AIExtraction  bool `json:"ai_extraction"`
	ChatAssistant bool `json:"chat_assistant"`
}

// PlanLimits caps account usage. Zero means unlimited.
type PlanLimits struct {
	MaxCompanies       int `json:"max_companies"`
	MaxVouchersMonthly int `json:"max_vouchers_monthly"`
}

// Plan is a subscription tier managed from the superadmin back office
type Plan struct {
	shared.BaseAggregateRoot
	Name         string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description  string          `gorm:"type:text"`
	MonthlyPrice decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency     string          `gorm:"type:varchar(3);not null;default:'USD'"`
	Features     PlanFeatures    `gorm:"embedded;embeddedPrefix:feature_"`
	Limits       PlanLimits      `gorm:"embedded;embeddedPrefix:limit_"`
	Active       bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Plan) TableName() string {
	return "plans"
}

// NewPlan creates a subscription plan
func NewPlan(name, description string, monthlyPrice decimal.Decimal, features PlanFeatures, limits PlanLimits) (*Plan, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_PLAN_NAME", "Plan name is required")
	}
	if monthlyPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Plan price cannot be negative")
	}
	if limits.MaxCompanies < 0 || limits.MaxVouchersMonthly < 0 {
		return nil, shared.NewDomainError("INVALID_LIMITS", "Plan limits cannot be negative")
	}

	return &Plan{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Description:       description,
		MonthlyPrice:      monthlyPrice,
		Currency:          "USD",
		Features:          features,
		Limits:            limits,
		Active:            true,
	}, nil
}

// Update changes the plan's price, features and limits
func (p *Plan) Update(description string, monthlyPrice decimal.Decimal, features PlanFeatures, limits PlanLimits) error {
	if monthlyPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Plan price cannot be negative")
	}
	if limits.MaxCompanies < 0 || limits.MaxVouchersMonthly < 0 {
		return shared.NewDomainError("INVALID_LIMITS", "Plan limits cannot be negative")
	}
	p.Description = description
	p.MonthlyPrice = monthlyPrice
	p.Features = features
	p.Limits = limits
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Deactivate hides the plan from new subscriptions. Existing subscriptions
// keep their plan reference.
func (p *Plan) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// AllowsCompanies reports whether the plan admits one more company
func (p *Plan) AllowsCompanies(current int64) bool {
	return p.Limits.MaxCompanies == 0 || current < int64(p.Limits.MaxCompanies)
}

// AllowsVouchers reports whether the plan admits one more voucher this month
func (p *Plan) AllowsVouchers(issuedThisMonth int64) bool {
	return p.Limits.MaxVouchersMonthly == 0 || issuedThisMonth < int64(p.Limits.MaxVouchersMonthly)
}
