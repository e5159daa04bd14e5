package authstate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// newGatewayStub はゲートウェイのHTTPサーフェスを模したテストサーバーを返す。
// sessionHitsは /auth/session が呼ばれた回数を数える。
func newGatewayStub(t *testing.T, loggedIn bool, sessionHits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/session", func(w http.ResponseWriter, r *http.Request) {
		if sessionHits != nil {
			sessionHits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		if loggedIn {
			w.Write([]byte(`{"user":{"telegram_id":123456789,"username":"taro_y","display_name":"Taro Yamada"},"isLoggedIn":true}`))
			return
		}
		w.Write([]byte(`{"user":null,"isLoggedIn":false}`))
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_BeforeLoad_StateUnknown(t *testing.T) {
	c := NewClient(nil, "http://gateway.example")

	if c.State() != StateUnknown {
		t.Errorf("State = %v, want StateUnknown", c.State())
	}
	if c.SignedIn() {
		t.Error("SignedIn should be false before Load")
	}
	if _, ok := c.SubjectID(); ok {
		t.Error("SubjectID should not be available before Load")
	}
}

func TestClient_Load_SignedIn_CachesIdentity(t *testing.T) {
	var hits atomic.Int32
	server := newGatewayStub(t, true, &hits)
	c := NewClient(server.Client(), server.URL)

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.State() != StateSignedIn {
		t.Errorf("State = %v, want StateSignedIn", c.State())
	}

	identity := c.Identity()
	if identity == nil || identity.TelegramID != 123456789 {
		t.Errorf("Identity = %+v, want telegram_id 123456789", identity)
	}

	subject, ok := c.SubjectID()
	if !ok || subject != 123456789 {
		t.Errorf("SubjectID = (%d, %v), want (123456789, true)", subject, ok)
	}
}

func TestClient_Load_SignedOut(t *testing.T) {
	server := newGatewayStub(t, false, nil)
	c := NewClient(server.Client(), server.URL)

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.State() != StateSignedOut {
		t.Errorf("State = %v, want StateSignedOut", c.State())
	}
	if c.Identity() != nil {
		t.Errorf("Identity = %+v, want nil", c.Identity())
	}
}

func TestClient_Load_Idempotent_SingleNetworkCall(t *testing.T) {
	var hits atomic.Int32
	server := newGatewayStub(t, true, &hits)
	c := NewClient(server.Client(), server.URL)

	for i := 0; i < 3; i++ {
		if err := c.Load(context.Background()); err != nil {
			t.Fatalf("Load %d failed: %v", i+1, err)
		}
	}

	// 初期化済みの場合はネットワークアクセスなし
	if hits.Load() != 1 {
		t.Errorf("session endpoint hit %d times, want 1", hits.Load())
	}
}

func TestClient_Load_ServerError_StaysUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	c := NewClient(server.Client(), server.URL)

	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
	if c.State() != StateUnknown {
		t.Errorf("State = %v, want StateUnknown after failed load", c.State())
	}
}

func TestClient_Identity_ReturnsCopy(t *testing.T) {
	server := newGatewayStub(t, true, nil)
	c := NewClient(server.Client(), server.URL)

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	first := c.Identity()
	first.Username = "mutated"

	second := c.Identity()
	if second.Username != "taro_y" {
		t.Errorf("cached identity was mutated: Username = %q", second.Username)
	}
}

func TestClient_SignOut_ClearsCacheOnSuccess(t *testing.T) {
	server := newGatewayStub(t, true, nil)
	c := NewClient(server.Client(), server.URL)

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	if c.State() != StateSignedOut {
		t.Errorf("State = %v, want StateSignedOut", c.State())
	}
	if c.Identity() != nil {
		t.Error("identity cache should be cleared after sign out")
	}
}

func TestClient_SignOut_FailedCall_KeepsCache(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/session", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user":{"telegram_id":42,"username":"u","display_name":"U"},"isLoggedIn":true}`))
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := NewClient(server.Client(), server.URL)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := c.SignOut(context.Background()); err == nil {
		t.Fatal("expected error for failed logout, got nil")
	}

	// 楽観的クリアはしない
	if c.State() != StateSignedIn {
		t.Errorf("State = %v, want StateSignedIn after failed sign out", c.State())
	}
	if c.Identity() == nil {
		t.Error("identity cache should survive a failed sign out")
	}
}

func TestClient_SignOut_ReportedFailure_ReturnsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"success": false})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := NewClient(server.Client(), server.URL)

	if err := c.SignOut(context.Background()); err == nil {
		t.Fatal("expected error when logout reports failure, got nil")
	}
}

func TestErrNotSignedIn_IsSentinel(t *testing.T) {
	c := NewClient(nil, "http://gateway.example")

	err := c.JoinQueue(context.Background(), "SMALL")
	if !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("err = %v, want ErrNotSignedIn", err)
	}
}
