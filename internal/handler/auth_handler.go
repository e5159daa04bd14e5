// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/musedinners/gateway/internal/metrics"
	"github.com/musedinners/gateway/internal/model"
	"github.com/musedinners/gateway/internal/telegram"
)

// リダイレクト先のパス。ログイン失敗時はerrorクエリパラメータで理由を伝える。
const (
	dashboardPath        = "/dashboard"
	loginInvalidAuthPath = "/login?error=invalid_auth"
	loginAPIErrorPath    = "/login?error=api_error"
)

// AssertionVerifier はTelegramログインデータの署名検証インターフェース。
// telegram.Verifierの部分集合として定義する。
type AssertionVerifier interface {
	Verify(a *telegram.Assertion) bool
}

// UserUpserter は認証済みIdentityのupstreamへのアップサートインターフェース。
// userstore.Clientの部分集合として定義する。
type UserUpserter interface {
	UpsertUser(ctx context.Context, identity model.Identity) error
}

// SessionManagerInterface は認証ハンドラーが必要とするセッション操作。
// session.Managerの部分集合として定義する。
type SessionManagerInterface interface {
	Write(w http.ResponseWriter, identity model.Identity) error
	Read(r *http.Request) *model.Session
	Clear(w http.ResponseWriter)
}

// NameSanitizer はユーザー由来の名前のサニタイズインターフェース。
type NameSanitizer interface {
	Sanitize(name string) string
}

// AvatarURLValidator はアバターURLの安全性検証インターフェース。
// security.OutboundGuardServiceの部分集合として定義する。
type AvatarURLValidator interface {
	ValidateURL(rawURL string) error
}

// AuthHandler はTelegram認証関連のHTTPハンドラー。
type AuthHandler struct {
	verifier  AssertionVerifier
	sanitizer NameSanitizer
	avatars   AvatarURLValidator
	users     UserUpserter
	sessions  SessionManagerInterface
	metrics   metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	verifier AssertionVerifier,
	sanitizer NameSanitizer,
	avatars AvatarURLValidator,
	users UserUpserter,
	sessions SessionManagerInterface,
	collector metrics.MetricsCollector,
) *AuthHandler {
	return &AuthHandler{
		verifier:  verifier,
		sanitizer: sanitizer,
		avatars:   avatars,
		users:     users,
		sessions:  sessions,
		metrics:   collector,
	}
}

// Callback はTelegramログインウィジェットからのコールバックを処理する。
// GET /auth/callback?id&first_name&last_name&username&photo_url&auth_date&hash
//
// 署名検証の失敗は必ずログインを拒否する（バイパスしない）。検証を通過した
// Identityのみをサニタイズしてupstreamへアップサートし、セッションCookieを
// 設定してダッシュボードへリダイレクトする。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. クエリパラメータからAssertionを組み立てる
	assertion, err := telegram.ParseAssertion(r.URL.Query())
	if err != nil {
		slog.Warn("malformed telegram callback", slog.String("error", err.Error()))
		h.metrics.RecordLogin(metrics.LoginInvalidAuth)
		http.Redirect(w, r, loginInvalidAuthPath, http.StatusTemporaryRedirect)
		return
	}

	// 2. HMAC署名の検証。auth_dateを含む全フィールドは検証を通過するまで信頼しない。
	if !h.verifier.Verify(assertion) {
		slog.Warn("telegram signature verification failed",
			slog.Int64("telegram_id", assertion.ID),
		)
		h.metrics.RecordLogin(metrics.LoginInvalidAuth)
		http.Redirect(w, r, loginInvalidAuthPath, http.StatusTemporaryRedirect)
		return
	}

	// 3. Identityへの変換とサニタイズ。名前はUIにそのまま表示されるため
	//    HTMLを除去する。危険なアバターURLは破棄する。
	identity := assertion.Identity()
	identity.Username = h.sanitizer.Sanitize(identity.Username)
	identity.DisplayName = h.sanitizer.Sanitize(identity.DisplayName)
	if identity.PhotoURL != "" {
		if err := h.avatars.ValidateURL(identity.PhotoURL); err != nil {
			slog.Warn("discarding unsafe avatar URL",
				slog.Int64("telegram_id", identity.TelegramID),
				slog.String("error", err.Error()),
			)
			identity.PhotoURL = ""
		}
	}

	// 4. upstreamのユーザーストアへアップサート
	if err := h.users.UpsertUser(r.Context(), identity); err != nil {
		slog.Error("user upsert failed",
			slog.Int64("telegram_id", identity.TelegramID),
			slog.String("error", err.Error()),
		)
		h.metrics.RecordLogin(metrics.LoginAPIError)
		http.Redirect(w, r, loginAPIErrorPath, http.StatusTemporaryRedirect)
		return
	}

	// 5. セッションCookieを設定してダッシュボードへ
	if err := h.sessions.Write(w, identity); err != nil {
		slog.Error("failed to issue session",
			slog.Int64("telegram_id", identity.TelegramID),
			slog.String("error", err.Error()),
		)
		h.metrics.RecordLogin(metrics.LoginAPIError)
		http.Redirect(w, r, loginAPIErrorPath, http.StatusTemporaryRedirect)
		return
	}

	slog.Info("user logged in", slog.Int64("telegram_id", identity.TelegramID))
	h.metrics.RecordLogin(metrics.LoginSuccess)
	http.Redirect(w, r, dashboardPath, http.StatusTemporaryRedirect)
}

// sessionResponse は GET /auth/session のレスポンスボディ。
type sessionResponse struct {
	User       *model.Identity `json:"user"`
	IsLoggedIn bool            `json:"isLoggedIn"`
}

// Session は現在のCookie状態を返す。
// GET /auth/session
// セッションが無い・無効な場合もエラーにはせず、未ログインとして200を返す。
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Read(r)
	h.metrics.RecordSessionRead(session != nil)

	w.Header().Set("Content-Type", "application/json")
	if session == nil {
		json.NewEncoder(w).Encode(sessionResponse{User: nil, IsLoggedIn: false})
		return
	}
	json.NewEncoder(w).Encode(sessionResponse{User: &session.Identity, IsLoggedIn: true})
}

// Logout はセッションCookieを破棄する。
// POST /auth/logout
// Cookieが既に無い場合も成功として扱う（冪等）。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.Read(r); session != nil {
		slog.Info("user logged out", slog.Int64("telegram_id", session.Identity.TelegramID))
	}

	h.sessions.Clear(w)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
