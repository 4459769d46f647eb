package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shelfchat/shelfchat/internal/auth"
	"github.com/shelfchat/shelfchat/internal/config"
	"github.com/shelfchat/shelfchat/internal/nl2gql"
	"github.com/shelfchat/shelfchat/internal/observability"
	"github.com/shelfchat/shelfchat/internal/pipeline"
	"github.com/shelfchat/shelfchat/internal/query"
)

type ReadinessCheck func(ctx context.Context) error

type Translator interface {
	Translate(ctx context.Context, question, sdl string) (nl2gql.Translation, error)
}

type Describer interface {
	Describe(ctx context.Context, response any) (nl2gql.Description, error)
}

type Asker interface {
	Ask(ctx context.Context, question string, sink pipeline.Sink) (pipeline.Run, error)
}

type TranscriptReader interface {
	List(ctx context.Context, limit int) ([]pipeline.Run, error)
	Get(ctx context.Context, id string) (pipeline.Run, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	QueryEngine       query.Engine
	Translator        Translator
	Describer         Describer
	Pipeline          Asker
	Transcripts       TranscriptReader
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = observability.DiscardLogger()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		if deps.QueryEngine == nil {
			writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query engine is not configured", false, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sdl": deps.QueryEngine.SDL()})
	})

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/nlp", func(w http.ResponseWriter, r *http.Request) {
		handleNLP(deps, w, r)
	})
	protected.HandleFunc("POST /v1/graphql", func(w http.ResponseWriter, r *http.Request) {
		handleGraphQL(deps, w, r)
	})
	protected.HandleFunc("POST /v1/translate", func(w http.ResponseWriter, r *http.Request) {
		handleTranslate(deps, w, r)
	})
	protected.HandleFunc("POST /v1/ask", func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})
	protected.HandleFunc("GET /v1/ask/stream", func(w http.ResponseWriter, r *http.Request) {
		handleAskStream(deps, w, r)
	})
	protected.HandleFunc("GET /v1/transcripts", func(w http.ResponseWriter, r *http.Request) {
		handleListTranscripts(deps, w, r)
	})
	protected.HandleFunc("GET /v1/transcripts/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleGetTranscript(deps, w, r)
	})

	var protectedHandler http.Handler = auth.RequireRead(protected)
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			deps.Logger.Error("auth required but auth middleware missing")
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/nlp", protectedHandler)
	mux.Handle("POST /v1/graphql", protectedHandler)
	mux.Handle("POST /v1/translate", protectedHandler)
	mux.Handle("POST /v1/ask", protectedHandler)
	mux.Handle("GET /v1/ask/stream", protectedHandler)
	mux.Handle("GET /v1/transcripts", protectedHandler)
	mux.Handle("GET /v1/transcripts/{id}", protectedHandler)
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	return chain(mux,
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
		observability.LoggingMiddleware(deps.Logger),
	)
}

// CheckStore pings the relational store.
func CheckStore(db *sql.DB) ReadinessCheck {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("store is not configured")
		}
		if err := db.PingContext(ctx); err != nil {
			return errors.New("store is unreachable: " + err.Error())
		}
		return nil
	}
}

func CheckAIConfig(cfg config.AIConfig) ReadinessCheck {
	return func(_ context.Context) error {
		if !cfg.Configured() {
			return errors.New("ai provider " + strings.TrimSpace(cfg.Provider) + " is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, errorBody(ctx, code, message, retryable, extra))
}

func errorBody(ctx context.Context, code, message string, retryable bool, extra map[string]any) map[string]any {
	return map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	}
}
