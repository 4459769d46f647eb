// Package nl2gql turns questions into GraphQL queries and query results back
// into prose using an llm.Generator.
package nl2gql

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shelfchat/shelfchat/internal/llm"
	"github.com/shelfchat/shelfchat/internal/observability"
)

var (
	ErrQuestionRequired = errors.New("question is required")
	ErrEmptyTranslation = errors.New("model returned an empty query")
)

// Cache stores translated queries. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type Translation struct {
	Query    string `json:"query"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Cached   bool   `json:"cached"`
}

type TranslatorOptions struct {
	Cache Cache
	// CacheNamespace separates cache entries of different provider/model pairs.
	CacheNamespace string
	Logger         *slog.Logger
}

type Translator struct {
	gen       llm.Generator
	cache     Cache
	namespace string
	logger    *slog.Logger
}

func NewTranslator(gen llm.Generator, opts TranslatorOptions) *Translator {
	logger := opts.Logger
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Translator{gen: gen, cache: opts.Cache, namespace: opts.CacheNamespace, logger: logger}
}

// Translate asks the model for a GraphQL query answering question against sdl.
func (t *Translator) Translate(ctx context.Context, question, sdl string) (Translation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Translation{}, ErrQuestionRequired
	}

	key := t.cacheKey(question, sdl)
	if t.cache != nil {
		cached, ok, err := t.cache.Get(ctx, key)
		switch {
		case err != nil:
			t.logger.WarnContext(ctx, "translation cache read failed", slog.String("error", err.Error()))
		case ok:
			observability.ObserveTranslationCache(true)
			hit := decodeCachedTranslation(cached)
			hit.Cached = true
			return hit, nil
		default:
			observability.ObserveTranslationCache(false)
		}
	}

	prompt := translationPrompt(question, sdl)
	t.logger.DebugContext(ctx, "translating question", slog.Int("prompt_bytes", len(prompt.User)))
	completion, err := t.gen.Generate(ctx, prompt)
	if err != nil {
		return Translation{}, fmt.Errorf("translate question: %w", err)
	}
	query := stripMarkdownFence(completion.Text)
	if query == "" {
		return Translation{}, ErrEmptyTranslation
	}

	translation := Translation{Query: query, Provider: completion.Provider, Model: completion.Model}
	if t.cache != nil {
		if err := t.cache.Set(ctx, key, encodeCachedTranslation(translation)); err != nil {
			t.logger.WarnContext(ctx, "translation cache write failed", slog.String("error", err.Error()))
		}
	}
	return translation, nil
}

// Cache keys keep the question's casing: names are matched exactly, so
// "brent weeks" and "Brent Weeks" translate differently.
func (t *Translator) cacheKey(question, sdl string) string {
	normalized := strings.Join(strings.Fields(question), " ")
	sum := sha256.Sum256([]byte(t.namespace + "\x00" + sdl + "\x00" + normalized))
	return hex.EncodeToString(sum[:])
}

func encodeCachedTranslation(translation Translation) string {
	raw, err := json.Marshal(translation)
	if err != nil {
		return translation.Query
	}
	return string(raw)
}

// decodeCachedTranslation also accepts entries written as a bare query.
func decodeCachedTranslation(value string) Translation {
	var translation Translation
	if err := json.Unmarshal([]byte(value), &translation); err != nil || translation.Query == "" {
		return Translation{Query: value}
	}
	return translation
}

func translationPrompt(question, sdl string) llm.Prompt {
	user := fmt.Sprintf(
		"Given the following GraphQL schema:\n%s\n\n"+
			"Convert %q from natural language into a valid GraphQL query.\n"+
			"Make sure that conditions such as \"name: 'Brent Weeks'\" are placed directly within the fields and not wrapped in a 'where' clause or any other condition wrapper.\n"+
			"Also, if the object type in the query is plural (e.g., \"authors\"), make sure it is converted to the singular form (e.g., \"author\") when querying a single entity.\n"+
			"Also, make sure there are no changes to the names used in the input.\n"+
			"Respond with only the GraphQL query, no explanations, no comments, and no markdown.",
		sdl,
		question,
	)
	return llm.Prompt{
		System: "You convert questions about a library of authors and books into GraphQL queries.",
		User:   user,
	}
}

func stripMarkdownFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 && !strings.ContainsAny(trimmed[:newline], "{}") {
			trimmed = trimmed[newline+1:]
		}
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return strings.TrimSpace(trimmed)
}
