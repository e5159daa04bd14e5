package session

import (
	"net/http"

	"github.com/musedinners/gateway/internal/model"
)

// CookieConfig はセッションCookieの属性を保持する。
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool // TLS配信時は必ず有効にする
	MaxAge int  // 秒
}

// Manager はHTTPリクエスト/レスポンスに対するセッションCookieの
// 読み書きを提供する。
type Manager struct {
	codec  *Codec
	config CookieConfig
}

// NewManager はManagerを生成する。
func NewManager(codec *Codec, config CookieConfig) *Manager {
	return &Manager{codec: codec, config: config}
}

// Write はIdentityから署名付きセッションCookieを発行してレスポンスに設定する。
func (m *Manager) Write(w http.ResponseWriter, identity model.Identity) error {
	token, err := m.codec.Issue(identity)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.config.Name,
		Value:    token,
		Path:     "/",
		Domain:   m.config.Domain,
		MaxAge:   m.config.MaxAge,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read はリクエストのCookieからセッションを復元する。
// Cookieが無い・改ざんされている・期限切れの場合はいずれもnilを返し、
// エラーにはしない。呼び出し側はnilを「未ログイン」として扱う。
func (m *Manager) Read(r *http.Request) *model.Session {
	cookie, err := r.Cookie(m.config.Name)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, ok := m.codec.Decode(cookie.Value)
	if !ok {
		return nil
	}
	return session
}

// Clear はセッションCookieを削除するディレクティブをレスポンスに設定する。
// Cookieが存在しない状態で呼んでも安全。
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.Name,
		Value:    "",
		Path:     "/",
		Domain:   m.config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CookieName は設定されているセッションCookie名を返す。
func (m *Manager) CookieName() string {
	return m.config.Name
}
