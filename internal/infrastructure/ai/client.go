// Package ai wires the OpenAI client used for invoice extraction and the
// tax chat assistant.
package ai

import (
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/config"
)

// NewClient creates an OpenAI client from configuration. Returns nil client
// and no error when the AI features are disabled; callers wire the assistant
// services only when a client exists.
func NewClient(cfg *config.OpenAIConfig) (*openai.Client, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required when ai is enabled")
	}
	return openai.NewClient(cfg.APIKey), nil
}
