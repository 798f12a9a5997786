package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/Strob0t/TaskForge/internal/logger"
)

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = logger.RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	respID := rec.Header().Get("X-Request-ID")
	if respID == "" {
		t.Fatal("expected X-Request-ID on the response")
	}
	if _, err := uuid.Parse(respID); err != nil {
		t.Fatalf("generated ID %q is not a UUID: %v", respID, err)
	}
	if ctxID != respID {
		t.Fatalf("context ID %q does not match response header %q", ctxID, respID)
	}
}

func TestRequestIDFromClientIsKept(t *testing.T) {
	const clientID = "forgectl-save-7"

	var ctxID string
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctxID = logger.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Request-ID", clientID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if ctxID != clientID {
		t.Fatalf("context ID %q, want %q", ctxID, clientID)
	}
	if got := rec.Header().Get("X-Request-ID"); got != clientID {
		t.Fatalf("response header %q, want %q", got, clientID)
	}
}
