package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func csrfHandler() http.Handler {
	mw := NewCSRFMiddleware(CSRFConfig{CookieSecure: false})
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFMiddleware_SafeMethod_PassesAndSetsTokenCookie(t *testing.T) {
	h := csrfHandler()

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var token *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "csrf_token" {
			token = c
		}
	}
	if token == nil {
		t.Fatal("expected csrf_token cookie to be set")
	}
	if token.HttpOnly {
		t.Error("csrf cookie must be readable by the frontend")
	}
	if token.Value == "" {
		t.Error("csrf token should not be empty")
	}
}

func TestCSRFMiddleware_SafeMethod_ExistingCookieNotReplaced(t *testing.T) {
	h := csrfHandler()

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "existing"})
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == "csrf_token" {
			t.Errorf("existing csrf cookie should not be replaced, got %q", c.Value)
		}
	}
}

func TestCSRFMiddleware_Post_MissingToken_Returns403(t *testing.T) {
	h := csrfHandler()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestCSRFMiddleware_Post_HeaderMismatch_Returns403(t *testing.T) {
	h := csrfHandler()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-a"})
	req.Header.Set("X-CSRF-Token", "token-b")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestCSRFMiddleware_Post_MatchingTokens_Passes(t *testing.T) {
	h := csrfHandler()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-a"})
	req.Header.Set("X-CSRF-Token", "token-a")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
