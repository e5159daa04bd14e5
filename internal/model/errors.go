// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Codeはレスポンスのerrorフィールドにそのまま載る機械可読な識別子。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upstream, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidAuth         = "invalid_auth"
	ErrCodeAPIError            = "api_error"
	ErrCodeInvalidJSON         = "invalid_json"
	ErrCodeUpstreamError       = "upstream_error"
	ErrCodeUpstreamTimeout     = "upstream_timeout"
	ErrCodeUpstreamUnreachable = "upstream_unreachable"
	ErrCodeRateLimited         = "rate_limited"
	ErrCodeInternal            = "internal_error"
)

// NewInvalidAuthError は署名検証失敗エラーを生成する。
func NewInvalidAuthError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAuth,
		Message:  "Telegram認証データの署名検証に失敗しました。",
		Category: "auth",
	}
}

// NewInvalidJSONError はJSONボディのパース失敗エラーを生成する。
// 不正なボディはupstreamへ転送する前に拒否される。
func NewInvalidJSONError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidJSON,
		Message:  "リクエストボディが有効なJSONではありません。",
		Category: "validation",
	}
}

// NewUpstreamTimeoutError はupstream呼び出しのタイムアウトエラーを生成する。
func NewUpstreamTimeoutError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamTimeout,
		Message:  "マッチングAPIの応答がタイムアウトしました。",
		Category: "upstream",
	}
}

// NewUpstreamUnreachableError はupstreamへの転送中のトランスポート例外を表す。
// 内部の詳細（スタックトレース等）はログのみに記録し、レスポンスには含めない。
func NewUpstreamUnreachableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnreachable,
		Message:  fmt.Sprintf("マッチングAPIへの接続に失敗しました: %s", reason),
		Category: "upstream",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。しばらく待ってから再度お試しください。",
		Category: "validation",
	}
}
