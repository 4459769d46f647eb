package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shelfchat/shelfchat/internal/llm"
	"github.com/shelfchat/shelfchat/internal/nl2gql"
)

func TestNLPTranslatesQuestionAgainstSchema(t *testing.T) {
	translator := &fakeTranslator{translation: nl2gql.Translation{Query: `{ author(name: "Brent Weeks") { id } }`, Provider: "gemini", Model: "gemini-1.5-flash"}}
	engine := &fakeEngine{}
	h := NewHandler(loadConfig(t, nil), Dependencies{Translator: translator, QueryEngine: engine})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonRequest(http.MethodPost, "/v1/nlp", `{"userQuery":"Who is Brent Weeks?"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["query"] != `{ author(name: "Brent Weeks") { id } }` || body["provider"] != "gemini" {
		t.Fatalf("unexpected body: %v", body)
	}
	if translator.question != "Who is Brent Weeks?" || translator.sdl != engine.SDL() {
		t.Fatalf("translator got question=%q sdl=%q", translator.question, translator.sdl)
	}
}

func TestNLPErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "empty", body: `{"userQuery":"  "}`, status: http.StatusBadRequest, code: "QUERY_REQUIRED"},
		{name: "bad json", body: `{"userQuery":`, status: http.StatusBadRequest, code: "INVALID_JSON"},
		{name: "unknown field", body: `{"prompt":"x"}`, status: http.StatusBadRequest, code: "INVALID_JSON"},
		{name: "exhausted", body: `{"userQuery":"x"}`, err: fmt.Errorf("translate question: %w", fmt.Errorf("%w after 3 attempts: %w", llm.ErrExhausted, &llm.ProviderError{Provider: "gemini", StatusCode: 503})), status: http.StatusServiceUnavailable, code: "MODEL_UNAVAILABLE"},
		{name: "provider failure", body: `{"userQuery":"x"}`, err: errors.New("boom"), status: http.StatusBadGateway, code: "TRANSLATE_FAILED"},
		{name: "empty output", body: `{"userQuery":"x"}`, err: nl2gql.ErrEmptyTranslation, status: http.StatusBadGateway, code: "TRANSLATE_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(loadConfig(t, nil), Dependencies{Translator: &fakeTranslator{err: tc.err}, QueryEngine: &fakeEngine{}})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, jsonRequest(http.MethodPost, "/v1/nlp", tc.body))
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d body=%s", rr.Code, tc.status, rr.Body.String())
			}
			if code := decodeBody(t, rr)["error_code"]; code != tc.code {
				t.Fatalf("error_code = %v, want %s", code, tc.code)
			}
		})
	}
}

func TestTranslateDescribesResponse(t *testing.T) {
	describer := &fakeDescriber{description: nl2gql.Description{Text: "Brent Weeks wrote **The Black Prism**.", HTML: "<p>Brent Weeks wrote <strong>The Black Prism</strong>.</p>\n"}}
	h := NewHandler(loadConfig(t, nil), Dependencies{Describer: describer})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonRequest(http.MethodPost, "/v1/translate", `{"response":{"data":{"author":{"name":"Brent Weeks"}}}}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["success"] != true || body["description"] != "Brent Weeks wrote **The Black Prism**." {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["description_html"] == "" {
		t.Fatal("expected html description")
	}
	if describer.input == nil {
		t.Fatal("describer was not called")
	}
}

func TestTranslateErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "missing", body: `{}`, status: http.StatusBadRequest, code: "RESPONSE_REQUIRED"},
		{name: "null", body: `{"response":null}`, status: http.StatusBadRequest, code: "RESPONSE_REQUIRED"},
		{name: "bad request", body: `{"response":{"a":1}}`, err: fmt.Errorf("describe response: %w", &llm.ProviderError{Provider: "openai", StatusCode: 400, Message: "Bad Request"}), status: http.StatusBadRequest, code: "DESCRIBE_BAD_REQUEST"},
		{name: "failure", body: `{"response":{"a":1}}`, err: errors.New("boom"), status: http.StatusInternalServerError, code: "DESCRIBE_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(loadConfig(t, nil), Dependencies{Describer: &fakeDescriber{err: tc.err}})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, jsonRequest(http.MethodPost, "/v1/translate", tc.body))
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d body=%s", rr.Code, tc.status, rr.Body.String())
			}
			body := decodeBody(t, rr)
			if body["success"] != false || body["error_code"] != tc.code {
				t.Fatalf("unexpected body: %v", body)
			}
		})
	}
}
