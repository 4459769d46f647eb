package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimitedGenerator struct {
	next    Generator
	limiter *rate.Limiter
}

// WithRateLimit blocks each call until limiter grants a token. A nil limiter
// returns next unchanged.
func WithRateLimit(next Generator, limiter *rate.Limiter) Generator {
	if limiter == nil {
		return next
	}
	return &rateLimitedGenerator{next: next, limiter: limiter}
}

func (g *rateLimitedGenerator) Generate(ctx context.Context, prompt Prompt) (Completion, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Completion{}, fmt.Errorf("rate limit wait: %w", err)
	}
	return g.next.Generate(ctx, prompt)
}
