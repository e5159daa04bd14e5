// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NameSanitizerService はTelegramから届くユーザー名・表示名をサニタイズする。
// これらはユーザーが自由に設定できる値であり、セッションに保存されて
// そのままUIに表示されるため、HTMLをすべて除去したプレーンテキストに正規化する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxNameLength はサニタイズ後の名前の最大長（rune数）。
// Telegramの表示名上限に余裕を持たせた値。
const maxNameLength = 128

// NameSanitizerService は名前サニタイズ機能のインターフェースを定義する。
// コールバックでのセッション保存前とupstreamへのアップサート前に使用される。
type NameSanitizerService interface {
	// Sanitize は名前からHTMLタグをすべて除去し、前後の空白を取り除いて返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(name string) string
}

// nameSanitizer はNameSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type nameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグと属性を除去し、テキストのみを残す。
func NewNameSanitizer() *nameSanitizer {
	return &nameSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は名前からHTMLをすべて除去してプレーンテキストを返す。
// bluemondayはエンティティをエスケープして返すため、除去後にアンエスケープして
// 表示用のテキストに戻す。長すぎる名前は上限で切り詰める。
func (s *nameSanitizer) Sanitize(name string) string {
	cleaned := html.UnescapeString(s.policy.Sanitize(name))
	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > maxNameLength {
		cleaned = string(runes[:maxNameLength])
	}
	return cleaned
}
