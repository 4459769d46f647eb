package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shelfchat/shelfchat/internal/pipeline"
)

func TestListTranscripts(t *testing.T) {
	transcripts := &fakeTranscripts{runs: []pipeline.Run{{ID: "b"}, {ID: "a"}}}
	h := NewHandler(loadConfig(t, nil), Dependencies{Transcripts: transcripts})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/transcripts?limit=5", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if transcripts.limit != 5 {
		t.Fatalf("limit = %d", transcripts.limit)
	}
	runs, _ := decodeBody(t, rr)["transcripts"].([]any)
	if len(runs) != 2 {
		t.Fatalf("transcripts = %v", runs)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/transcripts?limit=0", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid limit status = %d", rr.Code)
	}
}

func TestGetTranscript(t *testing.T) {
	transcripts := &fakeTranscripts{runs: []pipeline.Run{{ID: "run-1", Question: "q"}}}
	h := NewHandler(loadConfig(t, nil), Dependencies{Transcripts: transcripts})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/transcripts/run-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if decodeBody(t, rr)["question"] != "q" {
		t.Fatalf("body = %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/transcripts/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", rr.Code)
	}
}
