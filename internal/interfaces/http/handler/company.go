package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appcompany "github.com/simatecve/reten-facil-sub000/internal/application/company"
)

// maxLogoSize bounds logo uploads independent of the global body limit
const maxLogoSize = 2 << 20

// CompanyHandler serves the retention agents the account issues vouchers for
type CompanyHandler struct {
	BaseHandler
	service *appcompany.Service
	logger  *zap.Logger
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(service *appcompany.Service, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{service: service, logger: logger}
}

// Create registers a retention agent
// POST /api/v1/companies
func (h *CompanyHandler) Create(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req appcompany.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Create(c.Request.Context(), ownerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List returns all of the account's retention agents
// GET /api/v1/companies
func (h *CompanyHandler) List(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp, err := h.service.List(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get returns one retention agent
// GET /api/v1/companies/:id
func (h *CompanyHandler) Get(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	resp, err := h.service.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update edits a retention agent's fiscal data
// PUT /api/v1/companies/:id
func (h *CompanyHandler) Update(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req appcompany.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Update(c.Request.Context(), ownerID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes a retention agent
// DELETE /api/v1/companies/:id
func (h *CompanyHandler) Delete(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), ownerID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// UploadLogo stores the agent's logo for voucher headers
// POST /api/v1/companies/:id/logo
func (h *CompanyHandler) UploadLogo(c *gin.Context) {
	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	fileHeader, err := c.FormFile("logo")
	if err != nil {
		h.BadRequest(c, "Missing logo file")
		return
	}
	if fileHeader.Size > maxLogoSize {
		h.Error(c, 413, "FILE_TOO_LARGE", "Logo must be 2MB or smaller")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.InternalError(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	resp, err := h.service.UploadLogo(c.Request.Context(), ownerID, id, fileHeader.Filename, contentType, file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
