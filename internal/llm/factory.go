package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shelfchat/shelfchat/internal/config"
	"github.com/shelfchat/shelfchat/internal/observability"
	"golang.org/x/time/rate"
)

// New builds the configured provider wrapped with metrics, timeout, rate
// limiting and retry, outermost last.
func New(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (Generator, error) {
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	var (
		base Generator
		err  error
	)
	switch provider {
	case config.ProviderOpenAI:
		base, err = NewOpenAIGenerator(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		})
	case config.ProviderGemini:
		base, err = NewGeminiGenerator(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	case config.ProviderAnthropic:
		base, err = NewAnthropicGenerator(AnthropicConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s generator: %w", provider, err)
	}

	gen := Instrument(base, provider, cfg.Timeout)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		gen = WithRateLimit(gen, rate.NewLimiter(rate.Limit(cfg.RateLimit), burst))
	}
	return WithRetry(gen, RetryConfig{
		Attempts: cfg.RetryAttempts,
		Delay:    cfg.RetryDelay,
		Logger:   logger,
		Provider: provider,
	}), nil
}

type instrumentedGenerator struct {
	next     Generator
	provider string
	timeout  time.Duration
}

// Instrument bounds each call by timeout and records its outcome.
func Instrument(next Generator, provider string, timeout time.Duration) Generator {
	return &instrumentedGenerator{next: next, provider: provider, timeout: timeout}
}

func (g *instrumentedGenerator) Generate(ctx context.Context, prompt Prompt) (Completion, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	completion, err := g.next.Generate(ctx, prompt)
	observability.ObserveLLMCall(g.provider, err)
	return completion, err
}
