package assistant

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simatecve/reten-facil-sub000/internal/domain/billing"
	"github.com/simatecve/reten-facil-sub000/internal/domain/company"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// ChatCompleter is the slice of the OpenAI client this package uses.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// PlanGuard resolves the plan whose feature flags gate the AI endpoints
type PlanGuard interface {
	CurrentPlan(ctx context.Context, ownerID uuid.UUID) (*billing.Plan, error)
}

const extractionMaxAttempts = 2

// ExtractionService reads invoice fields out of a photographed or typed
// invoice. The model output is an untrusted suggestion: every field is
// validated before it is surfaced, and anything malformed is dropped.
type ExtractionService struct {
	client    ChatCompleter
	planGuard PlanGuard
	model     string
	logger    *zap.Logger
}

// NewExtractionService creates a new extraction service
func NewExtractionService(client ChatCompleter, planGuard PlanGuard, model string, logger *zap.Logger) *ExtractionService {
	if model == "" {
		model = openai.GPT4o
	}
	return &ExtractionService{
		client:    client,
		planGuard: planGuard,
		model:     model,
		logger:    logger,
	}
}

// ExtractionResult carries the validated invoice fields. Extracted is false
// when the model returned nothing usable; callers keep their prior values.
type ExtractionResult struct {
	Extracted     bool   `json:"extracted"`
	SupplierName  string `json:"supplier_name,omitempty"`
	SupplierRIF   string `json:"supplier_rif,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	ControlNumber string `json:"control_number,omitempty"`
	InvoiceDate   string `json:"invoice_date,omitempty"`
	TotalAmount   string `json:"total_amount,omitempty"`
	TaxBase       string `json:"tax_base,omitempty"`
	TaxAmount     string `json:"tax_amount,omitempty"`
	TaxRate       string `json:"tax_rate,omitempty"`
}

// rawExtraction is the JSON shape requested from the model, all strings so a
// sloppy response cannot fail the unmarshal outright.
type rawExtraction struct {
	SupplierName  string `json:"supplier_name"`
	SupplierRIF   string `json:"supplier_rif"`
	InvoiceNumber string `json:"invoice_number"`
	ControlNumber string `json:"control_number"`
	InvoiceDate   string `json:"invoice_date"`
	TotalAmount   string `json:"total_amount"`
	TaxBase       string `json:"tax_base"`
	TaxAmount     string `json:"tax_amount"`
	TaxRate       string `json:"tax_rate"`
}

const extractionSystemPrompt = `Eres un asistente que extrae datos de facturas venezolanas para ` +
	`comprobantes de retención de IVA. Responde UNICAMENTE con un objeto JSON válido, sin texto ` +
	`antes ni después, con estos campos (usa "" si un campo no aparece en la factura):
{
  "supplier_name": "razón social del proveedor",
  "supplier_rif": "RIF del proveedor, formato J-12345678-9",
  "invoice_number": "número de factura",
  "control_number": "número de control",
  "invoice_date": "fecha de la factura en formato YYYY-MM-DD",
  "total_amount": "monto total con IVA, número con punto decimal",
  "tax_base": "base imponible, número con punto decimal",
  "tax_amount": "monto del IVA, número con punto decimal",
  "tax_rate": "alícuota del IVA en porcentaje, por ejemplo 16"
}
No inventes valores. Devuelve {} si la imagen o el texto no es una factura.`

// ExtractFromImage runs vision extraction over an uploaded invoice image
func (s *ExtractionService) ExtractFromImage(ctx context.Context, ownerID uuid.UUID, contentType string, image io.Reader) (*ExtractionResult, error) {
	if err := s.checkFeature(ctx, ownerID); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(image)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, shared.NewDomainError("EMPTY_FILE", "Invoice image is empty")
	}
	if contentType != "image/png" && contentType != "image/jpeg" && contentType != "image/webp" {
		return nil, shared.NewDomainError("INVALID_FILE_TYPE", "Invoice image must be a PNG, JPEG or WebP")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	userMessage := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: "Extrae los datos de esta factura.",
			},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
			},
		},
	}
	return s.extract(ctx, userMessage)
}

// ExtractFromText runs extraction over pasted or OCR'd invoice text
func (s *ExtractionService) ExtractFromText(ctx context.Context, ownerID uuid.UUID, text string) (*ExtractionResult, error) {
	if err := s.checkFeature(ctx, ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invoice text cannot be empty")
	}
	userMessage := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: "Extrae los datos de esta factura:\n\n" + text,
	}
	return s.extract(ctx, userMessage)
}

func (s *ExtractionService) checkFeature(ctx context.Context, ownerID uuid.UUID) error {
	plan, err := s.planGuard.CurrentPlan(ctx, ownerID)
	if err != nil {
		return err
	}
	if !plan.Features.AIExtraction {
		return shared.NewDomainError("FEATURE_NOT_AVAILABLE", "Your plan does not include invoice auto-analysis")
	}
	return nil
}

func (s *ExtractionService) extract(ctx context.Context, userMessage openai.ChatCompletionMessage) (*ExtractionResult, error) {
	var lastErr error
	for attempt := 1; attempt <= extractionMaxAttempts; attempt++ {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       s.model,
			Temperature: 0.1,
			MaxTokens:   500,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
				userMessage,
			},
		})
		if err != nil {
			lastErr = err
			s.logger.Warn("invoice extraction request failed",
				zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices")
			continue
		}
		return s.parseExtraction(resp.Choices[0].Message.Content), nil
	}
	return nil, fmt.Errorf("invoice extraction failed after %d attempts: %w", extractionMaxAttempts, lastErr)
}

// parseExtraction turns the model output into a validated result. Malformed
// JSON or an empty object yields Extracted=false rather than an error, so the
// caller's manually entered values stay in place.
func (s *ExtractionService) parseExtraction(content string) *ExtractionResult {
	var raw rawExtraction
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &raw); err != nil {
		s.logger.Warn("invoice extraction returned malformed JSON", zap.Error(err))
		return &ExtractionResult{Extracted: false}
	}

	result := &ExtractionResult{}
	if name := strings.TrimSpace(raw.SupplierName); name != "" && len(name) <= 200 {
		result.SupplierName = name
	}
	if raw.SupplierRIF != "" {
		if rif, err := company.NormalizeRIF(raw.SupplierRIF); err == nil {
			result.SupplierRIF = rif
		} else {
			s.logger.Debug("dropping malformed extracted RIF", zap.String("rif", raw.SupplierRIF))
		}
	}
	if num := strings.TrimSpace(raw.InvoiceNumber); num != "" && len(num) <= 50 {
		result.InvoiceNumber = num
	}
	if num := strings.TrimSpace(raw.ControlNumber); num != "" && len(num) <= 50 {
		result.ControlNumber = num
	}
	if raw.InvoiceDate != "" {
		if _, err := time.Parse("2006-01-02", raw.InvoiceDate); err == nil {
			result.InvoiceDate = raw.InvoiceDate
		}
	}
	result.TotalAmount = validAmount(raw.TotalAmount)
	result.TaxBase = validAmount(raw.TaxBase)
	result.TaxAmount = validAmount(raw.TaxAmount)
	if raw.TaxRate != "" {
		if rate, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(raw.TaxRate), "%")); err == nil {
			if rate.IsPositive() && rate.LessThanOrEqual(decimal.NewFromInt(100)) {
				result.TaxRate = rate.String()
			}
		}
	}

	result.Extracted = result.SupplierName != "" || result.SupplierRIF != "" ||
		result.InvoiceNumber != "" || result.TotalAmount != ""
	return result
}

// validAmount accepts a non-negative decimal string, normalized
func validAmount(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil || d.IsNegative() {
		return ""
	}
	return d.String()
}

// stripCodeFence removes a ```json ... ``` wrapper some models add
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
