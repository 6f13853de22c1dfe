package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"studymind/internal/config"
	"studymind/internal/models"
)

// Client wraps a langchaingo chat model behind a single completion call.
type Client struct {
	llm   llms.Model
	model string
}

// NewClient builds a client for the configured provider. Anything that is
// not ollama is treated as an OpenAI-compatible endpoint (OpenRouter etc.).
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	var llm llms.Model
	var err error
	switch cfg.Provider {
	case "ollama":
		llm, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		llm, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing LLM client: %w", err)
	}
	return &Client{llm: llm, model: cfg.Model}, nil
}

// Complete sends one prompt and returns the model's text response.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	return resp, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// AnswerPrompt renders the grounded question-answering prompt.
func AnswerPrompt(query string, context []string) string {
	return fmt.Sprintf(models.AnswerPromptTemplate, strings.Join(context, "\n\n"), query)
}
