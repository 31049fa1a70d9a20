package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simatecve/reten-facil-sub000/internal/domain/billing"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// TrialPlanName is the plan every registration is enrolled on
const TrialPlanName = "Gratis"

// ObjectStorage is the slice of the storage collaborator this service needs
type ObjectStorage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// SubscriptionService manages user subscriptions and the manual payment
// verification flow.
type SubscriptionService struct {
	subRepo  billing.SubscriptionRepository
	planRepo billing.PlanRepository
	storage  ObjectStorage
	logger   *zap.Logger
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	subRepo billing.SubscriptionRepository,
	planRepo billing.PlanRepository,
	storage ObjectStorage,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:  subRepo,
		planRepo: planRepo,
		storage:  storage,
		logger:   logger,
	}
}

// SubscriptionResponse is the API shape of a subscription
type SubscriptionResponse struct {
	ID               uuid.UUID  `json:"id"`
	OwnerID          uuid.UUID  `json:"owner_id"`
	PlanID           uuid.UUID  `json:"plan_id"`
	PlanName         string     `json:"plan_name,omitempty"`
	Status           string     `json:"status"`
	PeriodStart      time.Time  `json:"period_start"`
	PeriodEnd        time.Time  `json:"period_end"`
	PaymentStatus    string     `json:"payment_status"`
	PaymentMethod    string     `json:"payment_method,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	PaymentProofURL  string     `json:"payment_proof_url,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	ReviewNote       string     `json:"review_note,omitempty"`
}

func toSubscriptionResponse(sub *billing.Subscription, planName string) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:               sub.ID,
		OwnerID:          sub.OwnerID,
		PlanID:           sub.PlanID,
		PlanName:         planName,
		Status:           string(sub.Status),
		PeriodStart:      sub.PeriodStart,
		PeriodEnd:        sub.PeriodEnd,
		PaymentStatus:    string(sub.PaymentStatus),
		PaymentMethod:    string(sub.PaymentMethod),
		PaymentReference: sub.PaymentReference,
		PaymentProofURL:  sub.PaymentProofURL,
		ReviewedAt:       sub.ReviewedAt,
		ReviewNote:       sub.ReviewNote,
	}
}

// EnrollTrial opens the trial subscription for a fresh account
func (s *SubscriptionService) EnrollTrial(ctx context.Context, ownerID uuid.UUID) error {
	plan, err := s.planRepo.FindByName(ctx, TrialPlanName)
	if err != nil {
		return fmt.Errorf("trial plan %q not provisioned: %w", TrialPlanName, err)
	}
	sub, err := billing.NewTrialSubscription(ownerID, plan.ID)
	if err != nil {
		return err
	}
	return s.subRepo.Save(ctx, sub)
}

// CurrentPlan resolves the owner's usable plan. Expired or cancelled
// subscriptions fall back to the trial plan's limits.
func (s *SubscriptionService) CurrentPlan(ctx context.Context, ownerID uuid.UUID) (*billing.Plan, error) {
	sub, err := s.subRepo.FindCurrentForOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return s.planRepo.FindByName(ctx, TrialPlanName)
		}
		return nil, err
	}
	if !sub.IsUsable(time.Now()) {
		return s.planRepo.FindByName(ctx, TrialPlanName)
	}
	return s.planRepo.FindByID(ctx, sub.PlanID)
}

// Current returns the owner's subscription with its plan name
func (s *SubscriptionService) Current(ctx context.Context, ownerID uuid.UUID) (*SubscriptionResponse, error) {
	sub, err := s.subRepo.FindCurrentForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	planName := ""
	if plan, err := s.planRepo.FindByID(ctx, sub.PlanID); err == nil {
		planName = plan.Name
	}
	return toSubscriptionResponse(sub, planName), nil
}

// Subscribe opens a paid subscription on the chosen plan, pending payment
func (s *SubscriptionService) Subscribe(ctx context.Context, ownerID, planID uuid.UUID) (*SubscriptionResponse, error) {
	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, shared.NewDomainError("PLAN_INACTIVE", "This plan is not open for new subscriptions")
	}
	sub, err := billing.NewSubscription(ownerID, plan.ID)
	if err != nil {
		return nil, err
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info("subscription opened",
		zap.String("owner_id", ownerID.String()), zap.String("plan", plan.Name))
	return toSubscriptionResponse(sub, plan.Name), nil
}

// ReportPaymentRequest carries a manually reported payment
type ReportPaymentRequest struct {
	Method    string `form:"method" binding:"required"`
	Reference string `form:"reference" binding:"required"`
}

var allowedProofTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"application/pdf": ".pdf",
}

// ReportPayment records a payment report with an optional proof document
func (s *SubscriptionService) ReportPayment(ctx context.Context, ownerID uuid.UUID, req ReportPaymentRequest, proofContentType string, proof io.Reader) (*SubscriptionResponse, error) {
	sub, err := s.subRepo.FindCurrentForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	proofURL := ""
	if proof != nil {
		ext, ok := allowedProofTypes[strings.ToLower(proofContentType)]
		if !ok {
			return nil, shared.NewDomainError("INVALID_FILE_TYPE", "Payment proof must be a PNG, JPEG or PDF")
		}
		key := fmt.Sprintf("payment-proofs/%s/%s%s", ownerID, uuid.New(), ext)
		proofURL, err = s.storage.Upload(ctx, key, proofContentType, proof)
		if err != nil {
			return nil, err
		}
	}

	if err := sub.ReportPayment(billing.PaymentMethod(req.Method), req.Reference, proofURL); err != nil {
		return nil, err
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return toSubscriptionResponse(sub, ""), nil
}

// ListAll returns subscriptions for the back office
func (s *SubscriptionService) ListAll(ctx context.Context, pendingOnly bool, filter shared.Filter) ([]SubscriptionResponse, int64, error) {
	var (
		subs  []billing.Subscription
		total int64
		err   error
	)
	if pendingOnly {
		subs, total, err = s.subRepo.FindPendingPayments(ctx, filter)
	} else {
		subs, total, err = s.subRepo.FindAll(ctx, filter)
	}
	if err != nil {
		return nil, 0, err
	}
	out := make([]SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, *toSubscriptionResponse(&subs[i], ""))
	}
	return out, total, nil
}

// ReviewRequest carries the superadmin's verdict note
type ReviewRequest struct {
	Note string `json:"note"`
}

// VerifyPayment accepts a reported payment and activates the period
func (s *SubscriptionService) VerifyPayment(ctx context.Context, reviewerID, subID uuid.UUID, req ReviewRequest) (*SubscriptionResponse, error) {
	sub, err := s.subRepo.FindByID(ctx, subID)
	if err != nil {
		return nil, err
	}
	if err := sub.VerifyPayment(reviewerID, req.Note); err != nil {
		return nil, err
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info("payment verified",
		zap.String("subscription_id", subID.String()),
		zap.String("reviewer_id", reviewerID.String()))
	return toSubscriptionResponse(sub, ""), nil
}

// RejectPayment refuses a reported payment
func (s *SubscriptionService) RejectPayment(ctx context.Context, reviewerID, subID uuid.UUID, req ReviewRequest) (*SubscriptionResponse, error) {
	sub, err := s.subRepo.FindByID(ctx, subID)
	if err != nil {
		return nil, err
	}
	if err := sub.RejectPayment(reviewerID, req.Note); err != nil {
		return nil, err
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return toSubscriptionResponse(sub, ""), nil
}
