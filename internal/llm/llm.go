// Package llm wraps hosted text-generation providers behind one Generator
// contract with shared transient-error classification.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnavailable marks transient provider failures worth retrying.
	ErrUnavailable = errors.New("llm: model unavailable")
	// ErrExhausted is returned once every retry attempt failed transiently.
	ErrExhausted = errors.New("llm: retries exhausted")
	// ErrBadRequest marks requests the provider rejected as malformed.
	ErrBadRequest      = errors.New("llm: bad request")
	ErrEmptyCompletion = errors.New("llm: empty completion")
)

type Prompt struct {
	System string
	User   string
}

type Completion struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (Completion, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt Prompt) (Completion, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt Prompt) (Completion, error) {
	return f(ctx, prompt)
}

// ProviderError carries the provider's status and message. It matches
// ErrUnavailable or ErrBadRequest through errors.Is when the status says so,
// and unwraps to the SDK error so context cancellation stays visible.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status=%d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return IsTransient(e.StatusCode, e.Message)
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest || strings.Contains(e.Message, "Bad Request") || strings.Contains(e.Message, "INVALID_ARGUMENT")
	default:
		return false
	}
}

// IsTransient reports whether a status/message pair means "try again later":
// 429, 503, 529 or UNAVAILABLE/overloaded/RESOURCE_EXHAUSTED messages.
func IsTransient(statusCode int, message string) bool {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, 529:
		return true
	}
	lower := strings.ToLower(message)
	for _, marker := range []string{"unavailable", "overloaded", "resource_exhausted", "error 503", "error 429", "error 529"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
