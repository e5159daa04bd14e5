package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/musedinners/gateway/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// SessionReader はリクエストからセッションを復元するインターフェース。
// session.Managerの部分集合として定義する。
type SessionReader interface {
	Read(r *http.Request) *model.Session
}

// NewSessionContextMiddleware は署名付きCookieからセッションを読み取り、
// 存在する場合にリクエストコンテキストへ注入するミドルウェアを返す。
// セッションが無い・無効な場合もリクエストは通す（認可はしない）。
// ログ出力とレート制限のキーイングが注入されたIdentityを利用する。
func NewSessionContextMiddleware(reader SessionReader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := reader.Read(r)
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// セッションミドルウェアを通過し、かつログイン済みの場合のみ値を返す。
func SessionFromContext(ctx context.Context) (*model.Session, error) {
	session, ok := ctx.Value(sessionContextKey).(*model.Session)
	if !ok || session == nil {
		return nil, fmt.Errorf("session not found in context")
	}
	return session, nil
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SubjectFromRequest はレート制限等のキーとして使う識別子を返す。
// セッションがあればtelegram id、なければリモートアドレスを使用する。
func SubjectFromRequest(r *http.Request) string {
	if session, err := SessionFromContext(r.Context()); err == nil {
		return strconv.FormatInt(session.Identity.TelegramID, 10)
	}
	return r.RemoteAddr
}
