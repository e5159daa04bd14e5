// Package telegram はTelegramログインウィジェットの認証データ検証を提供する。
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/musedinners/gateway/internal/model"
)

// Assertion はTelegramログインウィジェットから届く署名付きログインデータを表す。
// フィールドはすべてURLクエリパラメータ経由で届くため、署名検証を通過するまで
// 攻撃者が制御可能な値として扱う。
type Assertion struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	PhotoURL  string
	AuthDate  int64
	Hash      string
}

// ParseAssertion はコールバックのクエリパラメータからAssertionを組み立てる。
// id、auth_date、hashは必須。数値フィールドのパース失敗はエラーを返す。
func ParseAssertion(values url.Values) (*Assertion, error) {
	rawID := values.Get("id")
	if rawID == "" {
		return nil, fmt.Errorf("missing required parameter: id")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id parameter: %w", err)
	}

	rawAuthDate := values.Get("auth_date")
	if rawAuthDate == "" {
		return nil, fmt.Errorf("missing required parameter: auth_date")
	}
	authDate, err := strconv.ParseInt(rawAuthDate, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid auth_date parameter: %w", err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, fmt.Errorf("missing required parameter: hash")
	}

	return &Assertion{
		ID:        id,
		FirstName: values.Get("first_name"),
		LastName:  values.Get("last_name"),
		Username:  values.Get("username"),
		PhotoURL:  values.Get("photo_url"),
		AuthDate:  authDate,
		Hash:      hash,
	}, nil
}

// Identity は検証済みAssertionをアプリケーションのIdentityに変換する。
// usernameが無い場合は "user<id>"、表示名が無い場合は "User <id>" を補う。
func (a *Assertion) Identity() model.Identity {
	username := a.Username
	if username == "" {
		username = fmt.Sprintf("user%d", a.ID)
	}

	var parts []string
	if a.FirstName != "" {
		parts = append(parts, a.FirstName)
	}
	if a.LastName != "" {
		parts = append(parts, a.LastName)
	}
	displayName := strings.Join(parts, " ")
	if displayName == "" {
		displayName = fmt.Sprintf("User %d", a.ID)
	}

	return model.Identity{
		TelegramID:  a.ID,
		Username:    username,
		DisplayName: displayName,
		PhotoURL:    a.PhotoURL,
		AuthDate:    a.AuthDate,
	}
}

// Verifier はAssertionのHMAC-SHA256署名を検証する。
// 鍵はボットトークンのSHA-256ダイジェスト（Telegramの規定どおり）。
type Verifier struct {
	secret []byte
}

// NewVerifier はhex表現のボットトークンダイジェストからVerifierを生成する。
func NewVerifier(botHashHex string) (*Verifier, error) {
	secret, err := hex.DecodeString(botHashHex)
	if err != nil {
		return nil, fmt.Errorf("bot hash must be hex-encoded: %w", err)
	}
	if len(secret) != sha256.Size {
		return nil, fmt.Errorf("bot hash must be a SHA-256 digest, got %d bytes", len(secret))
	}
	return &Verifier{secret: secret}, nil
}

// Verify は期待署名を計算し、Assertionのhashと一致するかを返す。
// 副作用はない。比較は定数時間で行う。
func (v *Verifier) Verify(a *Assertion) bool {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(checkString(a)))
	expected := hex.EncodeToString(mac.Sum(nil))

	// hex文字列同士の比較。大文字小文字は区別する。
	return hmac.Equal([]byte(expected), []byte(a.Hash))
}

// checkString はhashを除く全フィールドを key=value 形式でキー昇順に並べ、
// 改行で連結した検証用文字列を生成する。
// 値が空のオプショナルフィールドは含めない（ウィジェットが送らなかったフィールド）。
// 入力フィールドの順序に依存せず決定的である。
func checkString(a *Assertion) string {
	pairs := []string{
		fmt.Sprintf("auth_date=%d", a.AuthDate),
		fmt.Sprintf("id=%d", a.ID),
	}
	if a.FirstName != "" {
		pairs = append(pairs, "first_name="+a.FirstName)
	}
	if a.LastName != "" {
		pairs = append(pairs, "last_name="+a.LastName)
	}
	if a.PhotoURL != "" {
		pairs = append(pairs, "photo_url="+a.PhotoURL)
	}
	if a.Username != "" {
		pairs = append(pairs, "username="+a.Username)
	}

	sort.Strings(pairs)
	return strings.Join(pairs, "\n")
}
