package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSecurityHeadersMiddleware_SetsStandardHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	mw := NewSecurityHeadersMiddleware()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/queues", nil)
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	resp := w.Result()
	if v := resp.Header.Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", v, "nosniff")
	}
	if v := resp.Header.Get("X-Frame-Options"); v != "DENY" {
		t.Errorf("X-Frame-Options = %q, want %q", v, "DENY")
	}
	if v := resp.Header.Get("Referrer-Policy"); v != "strict-origin-when-cross-origin" {
		t.Errorf("Referrer-Policy = %q, want %q", v, "strict-origin-when-cross-origin")
	}
	// /auth/ 以外はキャッシュ制御を付与しない
	if v := resp.Header.Get("Cache-Control"); v != "" {
		t.Errorf("Cache-Control = %q, want empty for non-auth path", v)
	}
}

func TestSecurityHeadersMiddleware_AuthPath_NoStore(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	mw := NewSecurityHeadersMiddleware()
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)

	if v := w.Result().Header.Get("Cache-Control"); v != "no-store" {
		t.Errorf("Cache-Control = %q, want %q", v, "no-store")
	}
}
