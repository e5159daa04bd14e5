package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSMiddleware_SetsHeadersOnNormalRequest(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw := NewCORSMiddleware("http://localhost:3000")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/queues", nil)
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	resp := w.Result()
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want %q", origin, "http://localhost:3000")
	}
	// Cookie送信と共存するためワイルドカードは使わない
	if resp.Header.Get("Access-Control-Allow-Origin") == "*" {
		t.Error("Allow-Origin should never be a wildcard")
	}
	if creds := resp.Header.Get("Access-Control-Allow-Credentials"); creds != "true" {
		t.Errorf("Allow-Credentials = %q, want %q", creds, "true")
	}
	if headers := resp.Header.Get("Access-Control-Allow-Headers"); !strings.Contains(headers, "X-CSRF-Token") {
		t.Errorf("Allow-Headers = %q, should contain X-CSRF-Token", headers)
	}
}

func TestCORSMiddleware_Preflight_Returns204WithoutCallingNext(t *testing.T) {
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	mw := NewCORSMiddleware("http://localhost:3000")
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/queues", nil)
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if called {
		t.Error("next handler should not be called for preflight")
	}
}
