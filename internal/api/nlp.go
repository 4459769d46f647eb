package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shelfchat/shelfchat/internal/llm"
	"github.com/shelfchat/shelfchat/internal/nl2gql"
)

type nlpRequest struct {
	UserQuery string `json:"userQuery"`
}

func handleNLP(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil || deps.QueryEngine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATE_NOT_CONFIGURED", "query translation is not configured", false, nil)
		return
	}

	var req nlpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid nlp request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.UserQuery) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "userQuery is required", false, nil)
		return
	}

	translation, err := deps.Translator.Translate(r.Context(), req.UserQuery, deps.QueryEngine.SDL())
	if err != nil {
		switch {
		case errors.Is(err, nl2gql.ErrQuestionRequired):
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "userQuery is required", false, nil)
		case errors.Is(err, llm.ErrUnavailable):
			writeError(r.Context(), w, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", "the model is unavailable, try again later", true, map[string]any{"details": err.Error()})
		default:
			writeError(r.Context(), w, http.StatusBadGateway, "TRANSLATE_FAILED", "failed to translate query", true, map[string]any{"details": err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":    translation.Query,
		"provider": translation.Provider,
		"model":    translation.Model,
		"cached":   translation.Cached,
	})
}

type translateRequest struct {
	Response json.RawMessage `json:"response"`
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Describer == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "DESCRIBE_NOT_CONFIGURED", "response description is not configured", false, nil)
		return
	}

	var req translateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeTranslateError(w, r, http.StatusBadRequest, "INVALID_JSON", "invalid translate request body", false, map[string]any{"details": err.Error()})
		return
	}
	raw := strings.TrimSpace(string(req.Response))
	if raw == "" || raw == "null" {
		writeTranslateError(w, r, http.StatusBadRequest, "RESPONSE_REQUIRED", "response is required", false, nil)
		return
	}

	description, err := deps.Describer.Describe(r.Context(), req.Response)
	if err != nil {
		switch {
		case errors.Is(err, nl2gql.ErrResponseRequired):
			writeTranslateError(w, r, http.StatusBadRequest, "RESPONSE_REQUIRED", "response is required", false, nil)
		case errors.Is(err, llm.ErrBadRequest):
			writeTranslateError(w, r, http.StatusBadRequest, "DESCRIBE_BAD_REQUEST", "the model rejected the response", false, map[string]any{"details": err.Error()})
		default:
			writeTranslateError(w, r, http.StatusInternalServerError, "DESCRIBE_FAILED", "failed to describe response", errors.Is(err, llm.ErrUnavailable), map[string]any{"details": err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"description":      description.Text,
		"description_html": description.HTML,
	})
}

func writeTranslateError(w http.ResponseWriter, r *http.Request, status int, code, message string, retryable bool, extra map[string]any) {
	body := errorBody(r.Context(), code, message, retryable, extra)
	body["success"] = false
	writeJSON(w, status, body)
}
