package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

const chatSystemPrompt = `Eres un asistente experto en retenciones de IVA en Venezuela. Ayudas a ` +
	`agentes de retención con dudas sobre alícuotas, porcentajes de retención (75% y 100%), plazos ` +
	`de enteramiento, comprobantes de retención y normativa del SENIAT. Responde en español, de ` +
	`forma clara y breve. Tus respuestas son orientativas y no sustituyen asesoría fiscal formal; ` +
	`dilo cuando la pregunta lo amerite. Si la pregunta no trata de impuestos venezolanos, indica ` +
	`amablemente que solo puedes ayudar con ese tema.`

const chatMaxHistory = 20

// ChatMessage is one turn of the assistant conversation
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest carries the conversation so far plus the new question
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" binding:"required,min=1,dive"`
	// Context is freeform account context, e.g. the selected company's data
	Context string `json:"context"`
}

// ChatResponse is the assistant's reply
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatService answers Venezuelan tax questions over a running conversation
type ChatService struct {
	client    ChatCompleter
	planGuard PlanGuard
	model     string
	logger    *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(client ChatCompleter, planGuard PlanGuard, model string, logger *zap.Logger) *ChatService {
	if model == "" {
		model = openai.GPT4o
	}
	return &ChatService{
		client:    client,
		planGuard: planGuard,
		model:     model,
		logger:    logger,
	}
}

// Chat sends the conversation to the model and returns its reply
func (s *ChatService) Chat(ctx context.Context, ownerID uuid.UUID, req ChatRequest) (*ChatResponse, error) {
	plan, err := s.planGuard.CurrentPlan(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !plan.Features.ChatAssistant {
		return nil, shared.NewDomainError("FEATURE_NOT_AVAILABLE", "Your plan does not include the tax assistant")
	}

	system := chatSystemPrompt
	if strings.TrimSpace(req.Context) != "" {
		system += "\n\nContexto de la cuenta del usuario:\n" + req.Context
	}

	history := req.Messages
	if len(history) > chatMaxHistory {
		history = history[len(history)-chatMaxHistory:]
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.4,
		MaxTokens:   800,
		Messages:    messages,
	})
	if err != nil {
		s.logger.Warn("assistant chat request failed",
			zap.String("owner_id", ownerID.String()), zap.Error(err))
		return nil, fmt.Errorf("assistant is unavailable: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("assistant returned no reply")
	}
	return &ChatResponse{Reply: resp.Choices[0].Message.Content}, nil
}
