package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appbilling "github.com/simatecve/reten-facil-sub000/internal/application/billing"
)

// maxProofSize bounds payment proof uploads
const maxProofSize = 5 << 20

// BillingHandler serves the account-facing side of billing: plan catalog,
// current subscription, plan changes and manual payment reports.
type BillingHandler struct {
	BaseHandler
	plans *appbilling.PlanService
	subs  *appbilling.SubscriptionService
	logger *zap.Logger
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(plans *appbilling.PlanService, subs *appbilling.SubscriptionService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{plans: plans, subs: subs, logger: logger}
}

// ListPlans returns the active plan catalog
// GET /api/v1/plans
func (h *BillingHandler) ListPlans(c *gin.Context) {
	resp, err := h.plans.List(c.Request.Context(), true)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CurrentSubscription returns the account's current subscription
// GET /api/v1/subscription
func (h *BillingHandler) CurrentSubscription(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp, err := h.subs.Current(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

type subscribeRequest struct {
	PlanID uuid.UUID `json:"plan_id" binding:"required"`
}

// Subscribe opens a pending subscription on the chosen plan. It activates
// once the superadmin verifies the reported payment.
// POST /api/v1/subscription
func (h *BillingHandler) Subscribe(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.subs.Subscribe(c.Request.Context(), ownerID, req.PlanID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ReportPayment records a manual payment report with an optional proof file
// POST /api/v1/subscription/payment (multipart: method, reference, proof)
func (h *BillingHandler) ReportPayment(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req appbilling.ReportPaymentRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var (
		proof            io.Reader
		proofContentType string
	)
	if fileHeader, err := c.FormFile("proof"); err == nil {
		if fileHeader.Size > maxProofSize {
			h.Error(c, 413, "FILE_TOO_LARGE", "Payment proof must be 5MB or smaller")
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			h.InternalError(c, "Failed to read uploaded file")
			return
		}
		defer file.Close()
		proof = file
		proofContentType = fileHeader.Header.Get("Content-Type")
	}

	resp, err := h.subs.ReportPayment(c.Request.Context(), ownerID, req, proofContentType, proof)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
