package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// SubscriptionStatus is the lifecycle state of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// PaymentStatus tracks the verification of a manually reported payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// PaymentMethod is how the user paid; payments are bank transfers or mobile
// payments reported manually, not gateway charges.
type PaymentMethod string

const (
	PaymentMethodTransfer    PaymentMethod = "transfer"
	PaymentMethodMobilePay   PaymentMethod = "mobile_pay"
	PaymentMethodZelle       PaymentMethod = "zelle"
	PaymentMethodCrypto      PaymentMethod = "crypto"
	PaymentMethodUnspecified PaymentMethod = ""
)

// IsValid reports whether the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodTransfer, PaymentMethodMobilePay, PaymentMethodZelle, PaymentMethodCrypto:
		return true
	}
	return false
}

// Subscription binds a user account to a plan for a billing period
type Subscription struct {
	shared.OwnedAggregateRoot
	PlanID           uuid.UUID          `gorm:"type:uuid;not null;index"`
	Status           SubscriptionStatus `gorm:"type:varchar(20);not null;default:'trial';index"`
	PeriodStart      time.Time          `gorm:"not null"`
	PeriodEnd        time.Time          `gorm:"not null;index"`
	PaymentStatus    PaymentStatus      `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentMethod    PaymentMethod      `gorm:"type:varchar(20)"`
	PaymentReference string             `gorm:"type:varchar(100)"`
	PaymentProofURL  string             `gorm:"type:varchar(500)"`
	ReviewedBy       *uuid.UUID         `gorm:"type:uuid"` // Superadmin who verified or rejected
	ReviewedAt       *time.Time
	ReviewNote       string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// TrialDays is the length of the free trial opened on registration
const TrialDays = 14

// NewTrialSubscription opens a trial period on the given plan
func NewTrialSubscription(ownerID, planID uuid.UUID) (*Subscription, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if planID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan ID cannot be empty")
	}
	now := time.Now()
	return &Subscription{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		PlanID:             planID,
		Status:             SubscriptionStatusTrial,
		PeriodStart:        now,
		PeriodEnd:          now.AddDate(0, 0, TrialDays),
		PaymentStatus:      PaymentStatusPending,
	}, nil
}

// NewSubscription opens a paid subscription awaiting payment verification
func NewSubscription(ownerID, planID uuid.UUID) (*Subscription, error) {
	sub, err := NewTrialSubscription(ownerID, planID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sub.Status = SubscriptionStatusPastDue
	sub.PeriodStart = now
	sub.PeriodEnd = now.AddDate(0, 1, 0)
	return sub, nil
}

// ReportPayment records a manually reported payment awaiting verification
func (s *Subscription) ReportPayment(method PaymentMethod, reference, proofURL string) error {
	if s.Status == SubscriptionStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot report a payment on a cancelled subscription")
	}
	if !method.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if strings.TrimSpace(reference) == "" {
		return shared.NewDomainError("INVALID_PAYMENT_REFERENCE", "Payment reference is required")
	}
	s.PaymentMethod = method
	s.PaymentReference = strings.TrimSpace(reference)
	s.PaymentProofURL = proofURL
	s.PaymentStatus = PaymentStatusPending
	s.ReviewedBy = nil
	s.ReviewedAt = nil
	s.ReviewNote = ""
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// VerifyPayment accepts the reported payment and activates the period
func (s *Subscription) VerifyPayment(reviewerID uuid.UUID, note string) error {
	if s.PaymentStatus != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending payments can be verified")
	}
	if s.PaymentReference == "" {
		return shared.NewDomainError("INVALID_STATE", "No payment has been reported")
	}
	now := time.Now()
	s.PaymentStatus = PaymentStatusVerified
	s.Status = SubscriptionStatusActive
	s.PeriodStart = now
	s.PeriodEnd = now.AddDate(0, 1, 0)
	s.ReviewedBy = &reviewerID
	s.ReviewedAt = &now
	s.ReviewNote = note
	s.UpdatedAt = now
	s.IncrementVersion()
	return nil
}

// RejectPayment refuses the reported payment
func (s *Subscription) RejectPayment(reviewerID uuid.UUID, note string) error {
	if s.PaymentStatus != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending payments can be rejected")
	}
	now := time.Now()
	s.PaymentStatus = PaymentStatusRejected
	s.Status = SubscriptionStatusPastDue
	s.ReviewedBy = &reviewerID
	s.ReviewedAt = &now
	s.ReviewNote = note
	s.UpdatedAt = now
	s.IncrementVersion()
	return nil
}

// Cancel ends the subscription
func (s *Subscription) Cancel() error {
	if s.Status == SubscriptionStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Subscription is already cancelled")
	}
	s.Status = SubscriptionStatusCancelled
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// IsUsable reports whether the subscription currently grants plan access:
// an unexpired trial or an active paid period.
func (s *Subscription) IsUsable(now time.Time) bool {
	switch s.Status {
	case SubscriptionStatusTrial, SubscriptionStatusActive:
		return now.Before(s.PeriodEnd)
	}
	return false
}
