// Package model はドメインモデルを定義する。
package model

import "time"

// Identity はTelegramログインで認証されたユーザーの不変属性を表す。
// IDプロバイダーがログインイベントごとに発行し、以後書き換えられない。
type Identity struct {
	TelegramID  int64  `json:"telegram_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
	AuthDate    int64  `json:"auth_date,omitempty"`
}

// Session はクライアントが署名付きCookieとして保持するログイン状態を表す。
// サーバー側にはセッションを永続化しない（Cookieがレコードそのもの）。
type Session struct {
	Identity   Identity
	IsLoggedIn bool
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Expired は時刻nowにおいてセッションが絶対有効期限を超えているかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
