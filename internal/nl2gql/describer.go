package nl2gql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shelfchat/shelfchat/internal/llm"
	"github.com/shelfchat/shelfchat/internal/observability"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	ErrResponseRequired = errors.New("response is required")
	ErrEmptyDescription = errors.New("model returned an empty description")
)

type Description struct {
	Text     string `json:"description"`
	HTML     string `json:"description_html"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Describer struct {
	gen      llm.Generator
	markdown goldmark.Markdown
	logger   *slog.Logger
}

func NewDescriber(gen llm.Generator, logger *slog.Logger) *Describer {
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Describer{
		gen:      gen,
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
		logger:   logger,
	}
}

// Describe asks the model for a concise description of response, which may be
// any JSON-encodable value.
func (d *Describer) Describe(ctx context.Context, response any) (Description, error) {
	if response == nil {
		return Description{}, ErrResponseRequired
	}
	if raw, ok := response.(json.RawMessage); ok && (len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null") {
		return Description{}, ErrResponseRequired
	}

	rendered, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return Description{}, fmt.Errorf("encode response: %w", err)
	}
	d.logger.DebugContext(ctx, "describing response", slog.Int("response_bytes", len(rendered)))

	completion, err := d.gen.Generate(ctx, llm.Prompt{
		User: "Translate the following GraphQL response into a concise human-readable description:\n" + string(rendered),
	})
	if err != nil {
		return Description{}, fmt.Errorf("describe response: %w", err)
	}
	text := strings.TrimSpace(completion.Text)
	if text == "" {
		return Description{}, ErrEmptyDescription
	}

	var html bytes.Buffer
	if err := d.markdown.Convert([]byte(text), &html); err != nil {
		return Description{}, fmt.Errorf("render description: %w", err)
	}
	return Description{
		Text:     text,
		HTML:     html.String(),
		Provider: completion.Provider,
		Model:    completion.Model,
	}, nil
}
