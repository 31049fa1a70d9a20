package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appretention "github.com/simatecve/reten-facil-sub000/internal/application/retention"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/printing"
	"github.com/simatecve/reten-facil-sub000/internal/interfaces/http/dto"
)

// VoucherHandler serves the issuing wizard and the issued voucher archive
type VoucherHandler struct {
	BaseHandler
	service  *appretention.VoucherService
	renderer printing.PDFRenderer
	logger   *zap.Logger
}

// NewVoucherHandler creates a new voucher handler. The renderer may be nil
// when PDF output is not configured; downloads then only serve HTML.
func NewVoucherHandler(service *appretention.VoucherService, renderer printing.PDFRenderer, logger *zap.Logger) *VoucherHandler {
	return &VoucherHandler{service: service, renderer: renderer, logger: logger}
}

// ==== Wizard drafts ====

// StartDraft always opens a fresh wizard draft; a client that kept the
// ID of an unfinished draft continues it via the draft routes instead
// POST /api/v1/vouchers/drafts
func (h *VoucherHandler) StartDraft(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp, err := h.service.StartDraft(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetDraft returns the wizard draft with its current state
// GET /api/v1/vouchers/drafts/:id
func (h *VoucherHandler) GetDraft(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	draftID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid draft ID")
		return
	}

	resp, err := h.service.GetDraft(c.Request.Context(), ownerID, draftID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

type selectCompanyRequest struct {
	CompanyID uuid.UUID `json:"company_id" binding:"required"`
}

// SelectCompany advances the draft past company selection
// PUT /api/v1/vouchers/drafts/:id/company
func (h *VoucherHandler) SelectCompany(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	draftID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid draft ID")
		return
	}

	var req selectCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.SelectCompany(c.Request.Context(), ownerID, draftID, req.CompanyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SetSupplier records the retained subject on the draft
// PUT /api/v1/vouchers/drafts/:id/supplier
func (h *VoucherHandler) SetSupplier(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	draftID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid draft ID")
		return
	}

	var req appretention.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.SetSupplier(c.Request.Context(), ownerID, draftID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AddItem appends an invoice line to the draft
// POST /api/v1/vouchers/drafts/:id/items
func (h *VoucherHandler) AddItem(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	draftID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid draft ID")
		return
	}

	var req appretention.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.AddItem(c.Request.Context(), ownerID, draftID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RemoveItem drops one invoice line from the draft
// DELETE /api/v1/vouchers/drafts/:id/items/:index
func (h *VoucherHandler) RemoveItem(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	draftID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid draft ID")
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.BadRequest(c, "Invalid item index")
		return
	}

	resp, err := h.service.RemoveItem(c.Request.Context(), ownerID, draftID, index)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Back steps the wizard one state backwards
// POST /api/v1/vouchers/drafts/:id/back
func (h *VoucherHandler) Back(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	draftID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid draft ID")
		return
	}

	resp, err := h.service.Back(c.Request.Context(), ownerID, draftID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Generate issues the voucher from a complete draft, allocating the next
// correlation number
// POST /api/v1/vouchers/drafts/:id/generate
func (h *VoucherHandler) Generate(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	draftID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid draft ID")
		return
	}

	resp, err := h.service.Generate(c.Request.Context(), ownerID, draftID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ==== Issued vouchers ====

// StartEdit opens an edit draft over an issued voucher
// POST /api/v1/vouchers/:id/edit
func (h *VoucherHandler) StartEdit(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	voucherID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}

	resp, err := h.service.StartEditDraft(c.Request.Context(), ownerID, voucherID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List returns the account's issued vouchers
// GET /api/v1/vouchers?company_id=&page=&page_size=&search=
func (h *VoucherHandler) List(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	listReq.Normalize()

	var companyID *uuid.UUID
	if raw := c.Query("company_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid company_id")
			return
		}
		companyID = &id
	}

	filter := shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		OrderBy:  listReq.OrderBy,
		OrderDir: listReq.OrderDir,
		Search:   listReq.Search,
	}

	vouchers, total, err := h.service.List(c.Request.Context(), ownerID, companyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, vouchers, total, filter.Page, filter.PageSize)
}

// Get returns one issued voucher
// GET /api/v1/vouchers/:id
func (h *VoucherHandler) Get(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	voucherID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}

	resp, err := h.service.Get(c.Request.Context(), ownerID, voucherID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

type updateItemsRequest struct {
	Items []appretention.ItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateItems replaces an issued voucher's invoice lines. The voucher number
// and issue date never change.
// PUT /api/v1/vouchers/:id/items
func (h *VoucherHandler) UpdateItems(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	voucherID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}

	var req updateItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.UpdateItems(c.Request.Context(), ownerID, voucherID, req.Items)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes an issued voucher. The company's correlation counter keeps
// advancing; numbers are never reused.
// DELETE /api/v1/vouchers/:id
func (h *VoucherHandler) Delete(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	voucherID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), ownerID, voucherID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Download renders the legal voucher document
// GET /api/v1/vouchers/:id/download?format=pdf|html
func (h *VoucherHandler) Download(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	voucherID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid voucher ID")
		return
	}

	voucher, err := h.service.Printable(c.Request.Context(), ownerID, voucherID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	html, err := printing.RenderVoucherHTML(voucher)
	if err != nil {
		h.logger.Error("Failed to render voucher HTML",
			zap.String("voucher_id", voucherID.String()),
			zap.Error(err))
		h.InternalError(c, "Failed to render voucher")
		return
	}

	format := c.DefaultQuery("format", "pdf")
	switch format {
	case "html":
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	case "pdf":
		if h.renderer == nil {
			h.ServiceUnavailable(c, "PDF rendering is not configured")
			return
		}
		result, err := h.renderer.Render(c.Request.Context(), &printing.RenderRequest{
			HTML:  html,
			Title: "Comprobante " + voucher.VoucherNumber,
		})
		if err != nil {
			h.logger.Error("Failed to render voucher PDF",
				zap.String("voucher_id", voucherID.String()),
				zap.Error(err))
			h.InternalError(c, "Failed to render voucher PDF")
			return
		}
		filename := fmt.Sprintf("comprobante-%s.pdf", voucher.VoucherNumber)
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, "application/pdf", result.PDFData)
	default:
		h.BadRequest(c, "Unsupported format, use pdf or html")
	}
}
