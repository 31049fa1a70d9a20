package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simatecve/reten-facil-sub000/internal/domain/billing"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// ============================================================================
// Mocks
// ============================================================================

// MockChatCompleter is a mock implementation of ChatCompleter
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

var _ ChatCompleter = (*MockChatCompleter)(nil)

// MockPlanGuard is a mock implementation of PlanGuard
type MockPlanGuard struct {
	mock.Mock
}

func (m *MockPlanGuard) CurrentPlan(ctx context.Context, ownerID uuid.UUID) (*billing.Plan, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Plan), args.Error(1)
}

var _ PlanGuard = (*MockPlanGuard)(nil)

// ============================================================================
// Test Helpers
// ============================================================================

func completionWith(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func planWithFeatures(ai, chat bool) *billing.Plan {
	plan, _ := billing.NewPlan("Profesional", "", decimal.NewFromInt(10),
		billing.PlanFeatures{AIExtraction: ai, ChatAssistant: chat}, billing.PlanLimits{})
	return plan
}

func newTestExtractionService() (*ExtractionService, *MockChatCompleter, *MockPlanGuard) {
	client := new(MockChatCompleter)
	guard := new(MockPlanGuard)
	service := NewExtractionService(client, guard, "gpt-4o", zap.NewNop())
	return service, client, guard
}

// ============================================================================
// ExtractFromText Tests
// ============================================================================

func TestExtractionService_ExtractFromText_ValidFields(t *testing.T) {
	service, client, guard := newTestExtractionService()
	ctx := context.Background()
	ownerID := uuid.New()

	guard.On("CurrentPlan", ctx, ownerID).Return(planWithFeatures(true, false), nil)
	client.On("CreateChatCompletion", ctx, mock.AnythingOfType("openai.ChatCompletionRequest")).
		Return(completionWith(`{
			"supplier_name": "Distribuidora Oriente C.A.",
			"supplier_rif": "j-98765432-1",
			"invoice_number": "FA-00231",
			"control_number": "00-00231",
			"invoice_date": "2025-03-10",
			"total_amount": "116.00",
			"tax_base": "100.00",
			"tax_amount": "16.00",
			"tax_rate": "16"
		}`), nil)

	result, err := service.ExtractFromText(ctx, ownerID, "FACTURA FA-00231 ...")

	require.NoError(t, err)
	assert.True(t, result.Extracted)
	assert.Equal(t, "Distribuidora Oriente C.A.", result.SupplierName)
	assert.Equal(t, "J-98765432-1", result.SupplierRIF)
	assert.Equal(t, "FA-00231", result.InvoiceNumber)
	assert.Equal(t, "2025-03-10", result.InvoiceDate)
	assert.Equal(t, "116", result.TotalAmount)
	assert.Equal(t, "16", result.TaxRate)
}

func TestExtractionService_ExtractFromText_MalformedJSONIsNotAnError(t *testing.T) {
	service, client, guard := newTestExtractionService()
	ctx := context.Background()
	ownerID := uuid.New()

	guard.On("CurrentPlan", ctx, ownerID).Return(planWithFeatures(true, false), nil)
	client.On("CreateChatCompletion", ctx, mock.AnythingOfType("openai.ChatCompletionRequest")).
		Return(completionWith("sorry, I cannot read this invoice"), nil)

	result, err := service.ExtractFromText(ctx, ownerID, "texto ilegible")

	require.NoError(t, err)
	assert.False(t, result.Extracted)
	assert.Empty(t, result.SupplierName)
	assert.Empty(t, result.TotalAmount)
}

func TestExtractionService_ExtractFromText_EmptyObjectMeansNothingExtracted(t *testing.T) {
	service, client, guard := newTestExtractionService()
	ctx := context.Background()
	ownerID := uuid.New()

	guard.On("CurrentPlan", ctx, ownerID).Return(planWithFeatures(true, false), nil)
	client.On("CreateChatCompletion", ctx, mock.AnythingOfType("openai.ChatCompletionRequest")).
		Return(completionWith("{}"), nil)

	result, err := service.ExtractFromText(ctx, ownerID, "no es una factura")

	require.NoError(t, err)
	assert.False(t, result.Extracted)
}

func TestExtractionService_ExtractFromText_DropsInvalidFieldsKeepsValid(t *testing.T) {
	service, client, guard := newTestExtractionService()
	ctx := context.Background()
	ownerID := uuid.New()

	guard.On("CurrentPlan", ctx, ownerID).Return(planWithFeatures(true, false), nil)
	client.On("CreateChatCompletion", ctx, mock.AnythingOfType("openai.ChatCompletionRequest")).
		Return(completionWith(`{
			"supplier_name": "Proveedor Real C.A.",
			"supplier_rif": "ZZ-nope",
			"invoice_date": "10/03/2025",
			"total_amount": "-50",
			"tax_rate": "300"
		}`), nil)

	result, err := service.ExtractFromText(ctx, ownerID, "factura borrosa")

	require.NoError(t, err)
	assert.True(t, result.Extracted)
	assert.Equal(t, "Proveedor Real C.A.", result.SupplierName)
	assert.Empty(t, result.SupplierRIF)
	assert.Empty(t, result.InvoiceDate)
	assert.Empty(t, result.TotalAmount)
	assert.Empty(t, result.TaxRate)
}

func TestExtractionService_ExtractFromText_StripsCodeFence(t *testing.T) {
	service, client, guard := newTestExtractionService()
	ctx := context.Background()
	ownerID := uuid.New()

	guard.On("CurrentPlan", ctx, ownerID).Return(planWithFeatures(true, false), nil)
	client.On("CreateChatCompletion", ctx, mock.AnythingOfType("openai.ChatCompletionRequest")).
		Return(completionWith("```json\n{\"invoice_number\": \"FA-1\"}\n```"), nil)

	result, err := service.ExtractFromText(ctx, ownerID, "factura")

	require.NoError(t, err)
	assert.True(t, result.Extracted)
	assert.Equal(t, "FA-1", result.InvoiceNumber)
}

func TestExtractionService_ExtractFromText_FeatureNotInPlan(t *testing.T) {
	service, client, guard := newTestExtractionService()
	ctx := context.Background()
	ownerID := uuid.New()

	guard.On("CurrentPlan", ctx, ownerID).Return(planWithFeatures(false, true), nil)

	_, err := service.ExtractFromText(ctx, ownerID, "factura")

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FEATURE_NOT_AVAILABLE", domainErr.Code)
	client.AssertNotCalled(t, "CreateChatCompletion", mock.Anything, mock.Anything)
}

// ============================================================================
// ExtractFromImage Tests
// ============================================================================

func TestExtractionService_ExtractFromImage_BuildsVisionMessage(t *testing.T) {
	service, client, guard := newTestExtractionService()
	ctx := context.Background()
	ownerID := uuid.New()

	guard.On("CurrentPlan", ctx, ownerID).Return(planWithFeatures(true, false), nil)
	client.On("CreateChatCompletion", ctx, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		if len(req.Messages) != 2 {
			return false
		}
		user := req.Messages[1]
		if len(user.MultiContent) != 2 {
			return false
		}
		img := user.MultiContent[1]
		return img.Type == openai.ChatMessagePartTypeImageURL &&
			strings.HasPrefix(img.ImageURL.URL, "data:image/png;base64,")
	})).Return(completionWith(`{"invoice_number":"FA-2"}`), nil)

	result, err := service.ExtractFromImage(ctx, ownerID, "image/png", strings.NewReader("png-bytes"))

	require.NoError(t, err)
	assert.True(t, result.Extracted)
	client.AssertExpectations(t)
}

func TestExtractionService_ExtractFromImage_RejectsUnsupportedType(t *testing.T) {
	service, client, guard := newTestExtractionService()
	ctx := context.Background()
	ownerID := uuid.New()

	guard.On("CurrentPlan", ctx, ownerID).Return(planWithFeatures(true, false), nil)

	_, err := service.ExtractFromImage(ctx, ownerID, "application/pdf", strings.NewReader("pdf"))

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_FILE_TYPE", domainErr.Code)
	client.AssertNotCalled(t, "CreateChatCompletion", mock.Anything, mock.Anything)
}

// ============================================================================
// Chat Tests
// ============================================================================

func TestChatService_Chat_Success(t *testing.T) {
	client := new(MockChatCompleter)
	guard := new(MockPlanGuard)
	service := NewChatService(client, guard, "gpt-4o", zap.NewNop())
	ctx := context.Background()
	ownerID := uuid.New()

	guard.On("CurrentPlan", ctx, ownerID).Return(planWithFeatures(false, true), nil)
	client.On("CreateChatCompletion", ctx, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		// system + 2 history turns, with the account context folded into
		// the system message
		return len(req.Messages) == 3 &&
			req.Messages[0].Role == openai.ChatMessageRoleSystem &&
			strings.Contains(req.Messages[0].Content, "Empresa J-12345678-9") &&
			req.Messages[2].Role == openai.ChatMessageRoleUser
	})).Return(completionWith("La retención del 75% aplica a contribuyentes ordinarios."), nil)

	resp, err := service.Chat(ctx, ownerID, ChatRequest{
		Messages: []ChatMessage{
			{Role: "assistant", Content: "¿En qué puedo ayudarte?"},
			{Role: "user", Content: "¿Cuándo retengo 75%?"},
		},
		Context: "Empresa J-12345678-9",
	})

	require.NoError(t, err)
	assert.Contains(t, resp.Reply, "75%")
}

func TestChatService_Chat_FeatureNotInPlan(t *testing.T) {
	client := new(MockChatCompleter)
	guard := new(MockPlanGuard)
	service := NewChatService(client, guard, "", zap.NewNop())
	ctx := context.Background()
	ownerID := uuid.New()

	guard.On("CurrentPlan", ctx, ownerID).Return(planWithFeatures(true, false), nil)

	_, err := service.Chat(ctx, ownerID, ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hola"}},
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FEATURE_NOT_AVAILABLE", domainErr.Code)
	client.AssertNotCalled(t, "CreateChatCompletion", mock.Anything, mock.Anything)
}
