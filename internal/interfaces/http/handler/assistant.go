package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/simatecve/reten-facil-sub000/internal/application/assistant"
)

// maxInvoiceImageSize bounds invoice photo uploads
const maxInvoiceImageSize = 8 << 20

// AssistantHandler serves AI invoice extraction and the tax chat assistant.
// Both services are nil when the AI integration is disabled in config.
type AssistantHandler struct {
	BaseHandler
	extraction *assistant.ExtractionService
	chat       *assistant.ChatService
	logger     *zap.Logger
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(extraction *assistant.ExtractionService, chat *assistant.ChatService, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{extraction: extraction, chat: chat, logger: logger}
}

type extractTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// Extract pulls invoice fields from an uploaded photo or pasted text.
// Multipart requests carry the image under "invoice"; JSON requests carry
// {"text": "..."} instead.
// POST /api/v1/assistant/extract
func (h *AssistantHandler) Extract(c *gin.Context) {
	if h.extraction == nil {
		h.ServiceUnavailable(c, "AI extraction is not enabled")
		return
	}

	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fileHeader, err := c.FormFile("invoice")
		if err != nil {
			h.BadRequest(c, "Missing invoice file")
			return
		}
		if fileHeader.Size > maxInvoiceImageSize {
			h.Error(c, 413, "FILE_TOO_LARGE", "Invoice image must be 8MB or smaller")
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			h.InternalError(c, "Failed to read uploaded file")
			return
		}
		defer file.Close()

		result, err := h.extraction.ExtractFromImage(c.Request.Context(), ownerID, fileHeader.Header.Get("Content-Type"), file)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, result)
		return
	}

	var req extractTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.extraction.ExtractFromText(c.Request.Context(), ownerID, req.Text)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Chat answers a tax question over the running conversation
// POST /api/v1/assistant/chat
func (h *AssistantHandler) Chat(c *gin.Context) {
	if h.chat == nil {
		h.ServiceUnavailable(c, "The tax assistant is not enabled")
		return
	}

	ownerID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req assistant.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.chat.Chat(c.Request.Context(), ownerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
