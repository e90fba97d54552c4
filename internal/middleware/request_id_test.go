package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDStoredInContext(t *testing.T) {
	var seen string
	var ok bool
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, ok = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if !ok || seen == "" {
		t.Fatal("request ID missing from handler context")
	}
	if got := rr.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("header X-Request-ID = %q, context = %q", got, seen)
	}
}

func TestRequestIDPreservesInboundHeader(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if seen != "upstream-id-42" {
		t.Fatalf("context request ID = %q, want upstream-id-42", seen)
	}
}
