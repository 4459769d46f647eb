package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfchat/shelfchat/internal/observability"
)

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
	Logger   *slog.Logger
	// Provider labels the retry counter.
	Provider string
}

type retryGenerator struct {
	next  Generator
	cfg   RetryConfig
	after func(time.Duration) <-chan time.Time
}

// WithRetry retries transient failures of next. Other errors return at once.
// When every attempt fails transiently the result wraps both ErrExhausted and
// the last provider error.
func WithRetry(next Generator, cfg RetryConfig) Generator {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.DiscardLogger()
	}
	return &retryGenerator{next: next, cfg: cfg, after: time.After}
}

func (g *retryGenerator) Generate(ctx context.Context, prompt Prompt) (Completion, error) {
	var lastErr error
	for attempt := 1; attempt <= g.cfg.Attempts; attempt++ {
		completion, err := g.next.Generate(ctx, prompt)
		if err == nil {
			return completion, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return Completion{}, err
		}
		lastErr = err
		if attempt == g.cfg.Attempts {
			break
		}

		observability.IncrementLLMRetry(g.cfg.Provider)
		g.cfg.Logger.WarnContext(ctx, "model unavailable, retrying",
			slog.String("provider", g.cfg.Provider),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", g.cfg.Attempts),
			slog.Duration("delay", g.cfg.Delay),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return Completion{}, ctx.Err()
		case <-g.after(g.cfg.Delay):
		}
	}
	return Completion{}, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, g.cfg.Attempts, lastErr)
}
