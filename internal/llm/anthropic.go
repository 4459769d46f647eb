package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const ProviderAnthropic = "anthropic"

type AnthropicConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

type anthropicMessages interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicGenerator struct {
	messages    anthropicMessages
	model       string
	temperature float64
	maxTokens   int
}

func NewAnthropicGenerator(cfg AnthropicConfig) (*AnthropicGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	// Retries are handled by WithRetry.
	client := anthropic.NewClient(
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
	)
	return newAnthropicGenerator(&client.Messages, cfg), nil
}

func newAnthropicGenerator(messages anthropicMessages, cfg AnthropicConfig) *AnthropicGenerator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicGenerator{
		messages:    messages,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, prompt Prompt) (Completion, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	}
	if g.temperature > 0 {
		params.Temperature = anthropic.Float(g.temperature)
	}
	if strings.TrimSpace(prompt.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}

	resp, err := g.messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return Completion{}, &ProviderError{Provider: ProviderAnthropic, StatusCode: apiErr.StatusCode, Message: err.Error(), Err: err}
		}
		return Completion{}, &ProviderError{Provider: ProviderAnthropic, Message: err.Error(), Err: err}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return Completion{}, ErrEmptyCompletion
	}
	return Completion{Text: text.String(), Provider: ProviderAnthropic, Model: g.model}, nil
}
