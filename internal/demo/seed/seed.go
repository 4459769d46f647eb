// Package seed fills a running shelfchat API with demo authors and books
// through its GraphQL mutations.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	findAuthorQuery = `query FindAuthor($name: String) { author(name: $name) { id } }`
	addAuthorQuery  = `mutation AddAuthor($name: String!) { addAuthor(name: $name) { id name } }`
	addBookQuery    = `mutation AddBook($name: String!, $authorId: String!) { addBook(name: $name, authorId: $authorId) { id } }`
)

type Service struct {
	cfg       Config
	log       *slog.Logger
	http      *http.Client
	generator *Generator
}

type Report struct {
	AuthorsCreated int `json:"authors_created"`
	AuthorsSkipped int `json:"authors_skipped"`
	BooksCreated   int `json:"books_created"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type entity struct {
	ID string `json:"id"`
}

func NewService(cfg Config, logger *slog.Logger, client *http.Client) (*Service, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Service{
		cfg:       cfg,
		log:       logger,
		http:      client,
		generator: NewGenerator(cfg.Seed),
	}, nil
}

// Run creates the classic library (when enabled) followed by the random plan.
// Authors that already exist are skipped together with their books.
func (s *Service) Run(ctx context.Context) (Report, error) {
	var plans []AuthorPlan
	if s.cfg.IncludeClassic {
		plans = append(plans, Classic...)
	}
	plans = append(plans, s.generator.Plan(s.cfg.Authors, s.cfg.MinBooks, s.cfg.MaxBooks)...)

	var report Report
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		existing, err := s.findAuthor(ctx, plan.Name)
		if err != nil {
			return report, err
		}
		if existing != "" {
			report.AuthorsSkipped++
			s.log.Info("demo author already exists", slog.String("author", plan.Name), slog.String("author_id", existing))
			continue
		}

		var author entity
		if err := s.call(ctx, addAuthorQuery, map[string]any{"name": plan.Name}, "addAuthor", &author); err != nil {
			return report, fmt.Errorf("add author %q: %w", plan.Name, err)
		}
		report.AuthorsCreated++

		for _, title := range plan.Books {
			var book entity
			vars := map[string]any{"name": title, "authorId": author.ID}
			if err := s.call(ctx, addBookQuery, vars, "addBook", &book); err != nil {
				return report, fmt.Errorf("add book %q: %w", title, err)
			}
			report.BooksCreated++
		}
		s.log.Info("seeded demo author",
			slog.String("author", plan.Name),
			slog.String("author_id", author.ID),
			slog.Int("books", len(plan.Books)),
		)
	}
	return report, nil
}

// findAuthor returns the id of the named author, or "" when the library
// reports it as missing.
func (s *Service) findAuthor(ctx context.Context, name string) (string, error) {
	response, err := s.post(ctx, findAuthorQuery, map[string]any{"name": name})
	if err != nil {
		return "", fmt.Errorf("find author %q: %w", name, err)
	}
	raw := response.Data["author"]
	if len(response.Errors) > 0 {
		if isNull(raw) && response.onlyNotFound() {
			return "", nil
		}
		return "", fmt.Errorf("find author %q: graphql error: %s", name, response.Errors[0].Message)
	}
	if isNull(raw) {
		return "", nil
	}
	var found entity
	if err := json.Unmarshal(raw, &found); err != nil {
		return "", fmt.Errorf("find author %q: decode author: %w", name, err)
	}
	return found.ID, nil
}

func (s *Service) call(ctx context.Context, query string, vars map[string]any, field string, target any) error {
	response, err := s.post(ctx, query, vars)
	if err != nil {
		return err
	}
	if len(response.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", response.Errors[0].Message)
	}
	raw, ok := response.Data[field]
	if !ok {
		return fmt.Errorf("graphql response is missing %s", field)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode %s: %w", field, err)
	}
	return nil
}

func (s *Service) post(ctx context.Context, query string, vars map[string]any) (graphQLResponse, error) {
	var response graphQLResponse
	status, body, err := s.doJSON(ctx, http.MethodPost, "/v1/graphql", graphQLRequest{Query: query, Variables: vars}, &response)
	if err != nil {
		return response, err
	}
	if status != http.StatusOK {
		return response, fmt.Errorf("graphql request status %d: %s", status, strings.TrimSpace(string(body)))
	}
	return response, nil
}

func (r graphQLResponse) onlyNotFound() bool {
	for _, e := range r.Errors {
		if !strings.HasSuffix(e.Message, "not found") {
			return false
		}
	}
	return true
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (s *Service) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) (int, []byte, error) {
	var payload io.Reader
	if requestBody != nil {
		raw, err := json.Marshal(requestBody)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.APIBaseURL+path, payload)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	if responseBody != nil && resp.StatusCode == http.StatusOK && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, responseBody); err != nil {
			return resp.StatusCode, body, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, body, nil
}
