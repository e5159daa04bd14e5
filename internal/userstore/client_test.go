package userstore

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/musedinners/gateway/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testIdentity() model.Identity {
	return model.Identity{
		TelegramID:  123456789,
		Username:    "taro_y",
		DisplayName: "Taro Yamada",
	}
}

func TestClient_UpsertUser_SendsExpectedRequest(t *testing.T) {
	var gotMethod, gotPath, gotAPIKey, gotContentType string
	var gotBody map[string]any

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("X-API-Key")
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer upstream.Close()

	c := NewClient(upstream.Client(), discardLogger(), upstream.URL, "test-api-key")

	if err := c.UpsertUser(context.Background(), testIdentity()); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want %q", gotMethod, http.MethodPost)
	}
	if gotPath != "/users" {
		t.Errorf("path = %q, want %q", gotPath, "/users")
	}
	if gotAPIKey != "test-api-key" {
		t.Errorf("X-API-Key = %q, want %q", gotAPIKey, "test-api-key")
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want %q", gotContentType, "application/json")
	}

	if gotBody["telegram_id"] != float64(123456789) {
		t.Errorf("telegram_id = %v, want 123456789", gotBody["telegram_id"])
	}
	if gotBody["username"] != "taro_y" {
		t.Errorf("username = %v, want %q", gotBody["username"], "taro_y")
	}
	if gotBody["display_name"] != "Taro Yamada" {
		t.Errorf("display_name = %v, want %q", gotBody["display_name"], "Taro Yamada")
	}
}

func TestClient_UpsertUser_TrimsTrailingSlash(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	c := NewClient(upstream.Client(), discardLogger(), upstream.URL+"/", "test-api-key")

	if err := c.UpsertUser(context.Background(), testIdentity()); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if gotPath != "/users" {
		t.Errorf("path = %q, want %q", gotPath, "/users")
	}
}

func TestClient_UpsertUser_Non2xxStatus_ReturnsError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	c := NewClient(upstream.Client(), discardLogger(), upstream.URL, "test-api-key")

	if err := c.UpsertUser(context.Background(), testIdentity()); err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
}

func TestClient_UpsertUser_TransportError_ReturnsError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	c := NewClient(&http.Client{}, discardLogger(), upstream.URL, "test-api-key")

	if err := c.UpsertUser(context.Background(), testIdentity()); err == nil {
		t.Fatal("expected error for unreachable upstream, got nil")
	}
}
