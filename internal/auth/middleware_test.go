package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStaticAPIKeyValidatorParsing(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:library_writer|library_reader, k2:bob:library_reader")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}
	if validator.Len() != 2 {
		t.Fatalf("Len() = %d", validator.Len())
	}
	identity, ok := validator.Validate(context.Background(), "k1")
	if !ok {
		t.Fatal("expected key to be valid")
	}
	if identity.Principal != "alice" {
		t.Fatalf("Principal = %q", identity.Principal)
	}
	if !identity.CanWrite() || !identity.CanRead() {
		t.Fatalf("roles = %v", identity.Roles)
	}

	reader, _ := validator.Validate(context.Background(), "k2")
	if reader.CanWrite() {
		t.Fatal("reader should not be able to write")
	}
	if _, ok := validator.Validate(context.Background(), "nope"); ok {
		t.Fatal("unknown key should not validate")
	}
}

func TestStaticAPIKeyValidatorRejectsBadSpec(t *testing.T) {
	for _, spec := range []string{
		"invalid",
		"k1::library_reader",
		"k1:alice:",
		"k1:alice:admin",
		"k1:alice:library_reader,k1:bob:library_reader",
	} {
		if _, err := NewStaticAPIKeyValidator(spec); err == nil {
			t.Fatalf("expected parse error for %q", spec)
		}
	}
}

func TestMiddlewareRequiresKey(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:library_reader")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}

	mw := Middleware(slog.New(slog.NewJSONHandler(io.Discard, nil)), validator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/nlp", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/nlp", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareInjectsIdentity(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:library_reader")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}

	handler := Middleware(nil, validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatal("expected identity in context")
		}
		if identity.Principal != "alice" {
			t.Fatalf("Principal = %q", identity.Principal)
		}
		if AllowsWrite(r.Context()) {
			t.Fatal("reader should not be allowed to write")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/graphql", nil)
	req.Header.Set("X-API-Key", "k1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMiddlewareAcceptsQueryKeyOnWebsocketUpgrade(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice:library_reader")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}
	handler := Middleware(nil, validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/ask/stream?api_key=k1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("plain request with query key: status = %d", rr.Code)
	}

	req.Header.Set("Upgrade", "websocket")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("upgrade request with query key: status = %d", rr.Code)
	}
}

func TestRequireReadRejectsRolelessIdentity(t *testing.T) {
	handler := RequireRead(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{Principal: "x"}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("anonymous status = %d", rr.Code)
	}
	if !AllowsWrite(context.Background()) {
		t.Fatal("anonymous requests are allowed to write when auth is disabled")
	}
}
