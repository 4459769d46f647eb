package shelfchatctl

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   map[string]any
}

func recordingServer(t *testing.T, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Method = r.Method
		got.Path = r.URL.Path
		got.Query = r.URL.RawQuery
		got.APIKey = r.Header.Get("X-API-Key")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&got.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestRunNLPCommandJoinsQuestion(t *testing.T) {
	srv, got := recordingServer(t, `{"query":"{ books { name } }"}`)

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"--base-url", srv.URL,
		"--api-key", "k1",
		"nlp", "list", "all", "books",
	}, Options{Stdout: &stdout, Stderr: &stderr, Timeout: 2 * time.Second})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if got.Method != http.MethodPost || got.Path != "/v1/nlp" {
		t.Fatalf("request = %s %s", got.Method, got.Path)
	}
	if got.APIKey != "k1" {
		t.Fatalf("X-API-Key = %q", got.APIKey)
	}
	if got.Body["userQuery"] != "list all books" {
		t.Fatalf("body = %#v", got.Body)
	}
	if !strings.Contains(stdout.String(), `"query": "{ books { name } }"`) {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

func TestRunGraphQLCommandSendsVariables(t *testing.T) {
	srv, got := recordingServer(t, `{"data":{"author":null}}`)

	code := Run(context.Background(), []string{
		"--base-url", srv.URL,
		"graphql", `query($name: String) { author(name: $name) { id } }`,
		"--var", "name=Brent Weeks",
	}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	vars, ok := got.Body["variables"].(map[string]any)
	if !ok || vars["name"] != "Brent Weeks" {
		t.Fatalf("variables = %#v", got.Body["variables"])
	}
}

func TestRunTranslateReadsStdin(t *testing.T) {
	srv, got := recordingServer(t, `{"success":true,"description":"Two books."}`)

	code := Run(context.Background(), []string{
		"--base-url", srv.URL,
		"translate", "-f", "-",
	}, Options{Stdin: strings.NewReader(`{"data":{"books":[{"name":"A"},{"name":"B"}]}}`)})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got.Path != "/v1/translate" {
		t.Fatalf("path = %s", got.Path)
	}
	response, ok := got.Body["response"].(map[string]any)
	if !ok || response["data"] == nil {
		t.Fatalf("body = %#v", got.Body)
	}
}

func TestRunTranslateRejectsInvalidJSON(t *testing.T) {
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"translate", "not json"}, Options{Stderr: &stderr})
	if code != 2 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "valid JSON") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestRunSchemaPrintsSDL(t *testing.T) {
	srv, _ := recordingServer(t, `{"sdl":"type Query {\n  books: [Book]\n}\n"}`)

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "schema"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if stdout.String() != "type Query {\n  books: [Book]\n}\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestRunTranscriptsCommands(t *testing.T) {
	srv, got := recordingServer(t, `{"transcripts":[]}`)

	code := Run(context.Background(), []string{"--base-url", srv.URL, "transcripts", "list", "--limit", "5"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got.Path != "/v1/transcripts" || got.Query != "limit=5" {
		t.Fatalf("request = %s?%s", got.Path, got.Query)
	}

	code = Run(context.Background(), []string{"--base-url", srv.URL, "transcripts", "get", "run-1"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got.Method != http.MethodGet || got.Path != "/v1/transcripts/run-1" {
		t.Fatalf("request = %s %s", got.Method, got.Path)
	}
}

func TestRunReadsConfigFile(t *testing.T) {
	srv, got := recordingServer(t, `{"status":"ok"}`)

	path := filepath.Join(t.TempDir(), "shelfchatctl.yaml")
	content := "api_url: " + srv.URL + "\napi_key: from-file\ncli_timeout: 2s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	code := Run(context.Background(), []string{"--config", path, "health"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got.Path != "/v1/health" || got.APIKey != "from-file" {
		t.Fatalf("request path=%s api_key=%q", got.Path, got.APIKey)
	}
}

func TestRunReadsEnvironment(t *testing.T) {
	srv, got := recordingServer(t, `{"status":"ready"}`)
	t.Setenv("SHELFCHAT_API_URL", srv.URL)
	t.Setenv("SHELFCHAT_API_KEY", "from-env")

	code := Run(context.Background(), []string{"ready"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got.Path != "/v1/ready" || got.APIKey != "from-env" {
		t.Fatalf("request path=%s api_key=%q", got.Path, got.APIKey)
	}
}

func TestRunAskStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var question string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/ask/stream" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		var req map[string]string
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		question = req["question"]
		_ = conn.WriteJSON(map[string]any{"type": "stage", "event": map[string]string{"stage": "translate"}})
		_ = conn.WriteJSON(map[string]any{"type": "done", "run": map[string]string{"id": "run-1"}})
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "ask", "--stream", "who", "wrote", "it?"}, Options{Stdout: &stdout, Stderr: &stderr})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if question != "who wrote it?" {
		t.Fatalf("question = %q", question)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], `"done"`) {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

func TestRunAskStreamErrorFrameFails(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		var req map[string]string
		_ = conn.ReadJSON(&req)
		_ = conn.WriteJSON(map[string]any{"type": "error", "error_code": "MODEL_UNAVAILABLE", "message": "overloaded"})
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{"--base-url", srv.URL, "ask", "--stream", "anything"}, Options{})
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
}

func TestRunReturnsErrorOnHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_code":"FORBIDDEN"}`))
	}))
	defer srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "ask", "who?"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "http 403") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestRunUsageErrors(t *testing.T) {
	for _, args := range [][]string{{"unknown"}, {}, {"nlp"}} {
		var stderr bytes.Buffer
		code := Run(context.Background(), args, Options{Stderr: &stderr})
		if code != 2 {
			t.Fatalf("%v exit code = %d", args, code)
		}
		if stderr.Len() == 0 {
			t.Fatalf("%v: expected error output", args)
		}
	}
}
