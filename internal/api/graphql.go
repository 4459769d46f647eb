package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shelfchat/shelfchat/internal/auth"
	"github.com/shelfchat/shelfchat/internal/query"
)

func handleGraphQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.QueryEngine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query engine is not configured", false, nil)
		return
	}

	var req query.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid graphql request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", false, nil)
		return
	}
	req.ReadOnly = !auth.AllowsWrite(r.Context())

	result, err := deps.QueryEngine.Execute(r.Context(), req)
	if err != nil {
		if errors.Is(err, query.ErrMutationNotAllowed) {
			writeError(r.Context(), w, http.StatusForbidden, "MUTATION_FORBIDDEN", "library_writer role required for mutations", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_FAILED", "failed to execute query", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
