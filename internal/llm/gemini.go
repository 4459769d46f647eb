package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const ProviderGemini = "gemini"

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// geminiModels is the slice of *genai.Models used here.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiGenerator struct {
	models      geminiModels
	model       string
	temperature float64
	maxTokens   int
}

func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGeminiGenerator(client.Models, cfg), nil
}

func newGeminiGenerator(models geminiModels, cfg GeminiConfig) *GeminiGenerator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiGenerator{
		models:      models,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt Prompt) (Completion, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.temperature)),
	}
	if g.maxTokens > 0 {
		config.MaxOutputTokens = int32(g.maxTokens)
	}
	if strings.TrimSpace(prompt.System) != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt.User), config)
	if err != nil {
		providerErr := &ProviderError{Provider: ProviderGemini, Message: err.Error(), Err: err}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			providerErr.StatusCode = apiErr.Code
		}
		return Completion{}, providerErr
	}
	if resp == nil {
		return Completion{}, ErrEmptyCompletion
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return Completion{}, ErrEmptyCompletion
	}
	return Completion{Text: text, Provider: ProviderGemini, Model: g.model}, nil
}
