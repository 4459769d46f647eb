package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shelfchat/shelfchat/internal/storage"
)

func handleListTranscripts(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Transcripts == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "transcript archive is not configured", false, nil)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 200", false, nil)
			return
		}
		limit = parsed
	}
	runs, err := deps.Transcripts.List(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "ARCHIVE_READ_FAILED", "failed to list transcripts", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transcripts": runs})
}

func handleGetTranscript(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Transcripts == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "transcript archive is not configured", false, nil)
		return
	}
	id := r.PathValue("id")
	run, err := deps.Transcripts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "TRANSCRIPT_NOT_FOUND", "transcript not found", false, map[string]any{"id": id})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "ARCHIVE_READ_FAILED", "failed to read transcript", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, run)
}
