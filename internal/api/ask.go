package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shelfchat/shelfchat/internal/llm"
	"github.com/shelfchat/shelfchat/internal/observability"
	"github.com/shelfchat/shelfchat/internal/pipeline"
	"github.com/shelfchat/shelfchat/internal/query"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	pipeline.Run
	ErrorCode string `json:"error_code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "question answering is not configured", false, nil)
		return
	}

	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	run, err := deps.Pipeline.Ask(r.Context(), req.Question, nil)
	if err != nil {
		status, code, retryable := classifyRunError(err)
		writeJSON(w, status, askResponse{
			Run:       run,
			ErrorCode: code,
			Retryable: retryable,
			TraceID:   observability.TraceIDFromContext(r.Context()),
		})
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Run: run})
}

// classifyRunError maps a failed run to an HTTP status and error code.
func classifyRunError(err error) (int, string, bool) {
	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) {
		return http.StatusInternalServerError, "ASK_FAILED", false
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "ASK_TIMEOUT", true
	case errors.Is(err, llm.ErrUnavailable):
		return http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", true
	case errors.Is(err, query.ErrMutationNotAllowed):
		return http.StatusForbidden, "MUTATION_FORBIDDEN", false
	}
	switch stageErr.Stage {
	case pipeline.StageTranslate:
		return http.StatusBadGateway, "TRANSLATE_FAILED", true
	case pipeline.StageExecute:
		return http.StatusUnprocessableEntity, "QUERY_FAILED", false
	case pipeline.StageDescribe:
		return http.StatusBadGateway, "DESCRIBE_FAILED", true
	default:
		return http.StatusInternalServerError, "ASK_FAILED", false
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

const streamWriteTimeout = 10 * time.Second

// streamMessage is one frame of /v1/ask/stream. Type is "stage", "done" or
// "error".
type streamMessage struct {
	Type      string               `json:"type"`
	Event     *pipeline.StageEvent `json:"event,omitempty"`
	Run       *pipeline.Run        `json:"run,omitempty"`
	ErrorCode string               `json:"error_code,omitempty"`
	Message   string               `json:"message,omitempty"`
}

func handleAskStream(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "question answering is not configured", false, nil)
		return
	}
	logger := observability.LoggerWithTrace(r.Context(), deps.Logger)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(r.Context(), "websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = conn.Close() }()

	send := func(msg streamMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		return conn.WriteJSON(msg)
	}

	for {
		var req askRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnContext(r.Context(), "websocket read failed", slog.String("error", err.Error()))
			}
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			if err := send(streamMessage{Type: "error", ErrorCode: "QUESTION_REQUIRED", Message: "question is required"}); err != nil {
				return
			}
			continue
		}

		var writeErr error
		run, err := deps.Pipeline.Ask(r.Context(), req.Question, func(event pipeline.StageEvent) {
			if writeErr != nil {
				return
			}
			writeErr = send(streamMessage{Type: "stage", Event: &event})
		})
		if writeErr != nil {
			return
		}
		if err != nil {
			_, code, _ := classifyRunError(err)
			writeErr = send(streamMessage{Type: "error", Run: &run, ErrorCode: code, Message: run.Error})
		} else {
			writeErr = send(streamMessage{Type: "done", Run: &run})
		}
		if writeErr != nil {
			return
		}
	}
}
