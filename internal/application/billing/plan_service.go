// Package billing implements the subscription plans and the back-office
// payment verification flow.
package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simatecve/reten-facil-sub000/internal/domain/billing"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// PlanService manages subscription plans from the superadmin back office
type PlanService struct {
	planRepo billing.PlanRepository
	logger   *zap.Logger
}

// NewPlanService creates a new plan service
func NewPlanService(planRepo billing.PlanRepository, logger *zap.Logger) *PlanService {
	return &PlanService{planRepo: planRepo, logger: logger}
}

// PlanRequest carries a plan's editable fields
type PlanRequest struct {
	Name               string          `json:"name" binding:"required"`
	Description        string          `json:"description"`
	MonthlyPrice       decimal.Decimal `json:"monthly_price"`
	AIExtraction       bool            `json:"ai_extraction"`
	ChatAssistant      bool            `json:"chat_assistant"`
	MaxCompanies       int             `json:"max_companies"`
	MaxVouchersMonthly int             `json:"max_vouchers_monthly"`
}

// PlanResponse is the API shape of a plan
type PlanResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	MonthlyPrice       decimal.Decimal `json:"monthly_price"`
	Currency           string          `json:"currency"`
	AIExtraction       bool            `json:"ai_extraction"`
	ChatAssistant      bool            `json:"chat_assistant"`
	MaxCompanies       int             `json:"max_companies"`
	MaxVouchersMonthly int             `json:"max_vouchers_monthly"`
	Active             bool            `json:"active"`
}

func toPlanResponse(p *billing.Plan) *PlanResponse {
	return &PlanResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		MonthlyPrice:       p.MonthlyPrice,
		Currency:           p.Currency,
		AIExtraction:       p.Features.AIExtraction,
		ChatAssistant:      p.Features.ChatAssistant,
		MaxCompanies:       p.Limits.MaxCompanies,
		MaxVouchersMonthly: p.Limits.MaxVouchersMonthly,
		Active:             p.Active,
	}
}

// Create adds a plan
func (s *PlanService) Create(ctx context.Context, req PlanRequest) (*PlanResponse, error) {
	if existing, err := s.planRepo.FindByName(ctx, req.Name); err == nil && existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A plan with this name already exists")
	}
	plan, err := billing.NewPlan(req.Name, req.Description, req.MonthlyPrice,
		billing.PlanFeatures{AIExtraction: req.AIExtraction, ChatAssistant: req.ChatAssistant},
		billing.PlanLimits{MaxCompanies: req.MaxCompanies, MaxVouchersMonthly: req.MaxVouchersMonthly})
	if err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, plan); err != nil {
		return nil, err
	}
	s.logger.Info("plan created", zap.String("name", plan.Name))
	return toPlanResponse(plan), nil
}

// Update edits a plan
func (s *PlanService) Update(ctx context.Context, id uuid.UUID, req PlanRequest) (*PlanResponse, error) {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := plan.Update(req.Description, req.MonthlyPrice,
		billing.PlanFeatures{AIExtraction: req.AIExtraction, ChatAssistant: req.ChatAssistant},
		billing.PlanLimits{MaxCompanies: req.MaxCompanies, MaxVouchersMonthly: req.MaxVouchersMonthly}); err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, plan); err != nil {
		return nil, err
	}
	return toPlanResponse(plan), nil
}

// Deactivate hides a plan from new subscriptions
func (s *PlanService) Deactivate(ctx context.Context, id uuid.UUID) (*PlanResponse, error) {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	plan.Deactivate()
	if err := s.planRepo.Save(ctx, plan); err != nil {
		return nil, err
	}
	return toPlanResponse(plan), nil
}

// List returns plans; activeOnly hides retired tiers for the public listing
func (s *PlanService) List(ctx context.Context, activeOnly bool) ([]PlanResponse, error) {
	plans, err := s.planRepo.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]PlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, *toPlanResponse(&plans[i]))
	}
	return out, nil
}
