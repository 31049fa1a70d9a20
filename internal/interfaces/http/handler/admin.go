package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/simatecve/reten-facil-sub000/internal/application/billing"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
	"github.com/simatecve/reten-facil-sub000/internal/interfaces/http/dto"
)

// AdminHandler serves the superadmin back office: the plan catalog and the
// manual payment verification queue.
type AdminHandler struct {
	BaseHandler
	plans *appbilling.PlanService
	subs  *appbilling.SubscriptionService
	logger *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(plans *appbilling.PlanService, subs *appbilling.SubscriptionService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{plans: plans, subs: subs, logger: logger}
}

// ==== Plan catalog ====

// ListPlans returns every plan including deactivated ones
// GET /api/v1/admin/plans
func (h *AdminHandler) ListPlans(c *gin.Context) {
	resp, err := h.plans.List(c.Request.Context(), false)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CreatePlan adds a plan to the catalog
// POST /api/v1/admin/plans
func (h *AdminHandler) CreatePlan(c *gin.Context) {
	var req appbilling.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.plans.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// UpdatePlan edits a plan's pricing, features and limits
// PUT /api/v1/admin/plans/:id
func (h *AdminHandler) UpdatePlan(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid plan ID")
		return
	}

	var req appbilling.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.plans.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DeactivatePlan hides a plan from new subscriptions. Existing subscribers
// keep their terms.
// DELETE /api/v1/admin/plans/:id
func (h *AdminHandler) DeactivatePlan(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid plan ID")
		return
	}

	resp, err := h.plans.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ==== Payment verification ====

// ListSubscriptions returns subscriptions across all accounts
// GET /api/v1/admin/subscriptions?pending=true&page=&page_size=
func (h *AdminHandler) ListSubscriptions(c *gin.Context) {
	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	listReq.Normalize()

	pendingOnly := c.Query("pending") == "true"
	filter := shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		OrderBy:  listReq.OrderBy,
		OrderDir: listReq.OrderDir,
		Search:   listReq.Search,
	}

	subs, total, err := h.subs.ListAll(c.Request.Context(), pendingOnly, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, subs, total, filter.Page, filter.PageSize)
}

// VerifyPayment accepts a reported payment and activates the period
// POST /api/v1/admin/subscriptions/:id/verify
func (h *AdminHandler) VerifyPayment(c *gin.Context) {
	reviewerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	subID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid subscription ID")
		return
	}

	var req appbilling.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.subs.VerifyPayment(c.Request.Context(), reviewerID, subID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RejectPayment turns down a reported payment with a note for the user
// POST /api/v1/admin/subscriptions/:id/reject
func (h *AdminHandler) RejectPayment(c *gin.Context) {
	reviewerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	subID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid subscription ID")
		return
	}

	var req appbilling.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.subs.RejectPayment(c.Request.Context(), reviewerID, subID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
