// Package session は署名付きステートレスセッションCookieを提供する。
// セッションの実体はHS256署名付きJWTで、サーバー側には何も永続化しない。
// 有効性の条件は「署名が検証できること」と「絶対有効期限内であること」の2つのみ。
package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/musedinners/gateway/internal/model"
)

// minSecretLength は署名シークレットの最小長（バイト）。
const minSecretLength = 32

// sessionClaims はセッションJWTのクレームを表す。
// 標準クレーム（iat/exp/sub）に認証済みIdentityを加えたもの。
type sessionClaims struct {
	TelegramID  int64  `json:"telegram_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
	AuthDate    int64  `json:"auth_date,omitempty"`
	jwt.RegisteredClaims
}

// Codec はIdentityと署名付きトークンの相互変換を行う。
type Codec struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time // テストで差し替え可能
}

// NewCodec はCodecを生成する。シークレットが短すぎる場合はエラーを返す。
func NewCodec(secret string, maxAge time.Duration) (*Codec, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes, got %d", minSecretLength, len(secret))
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("session max age must be positive")
	}
	return &Codec{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// Issue はIdentityを署名付きトークンに変換する。
// 有効期限は発行時刻からmaxAge後の絶対時刻で、アクティビティによる延長はない。
func (c *Codec) Issue(identity model.Identity) (string, error) {
	now := c.now()
	claims := sessionClaims{
		TelegramID:  identity.TelegramID,
		Username:    identity.Username,
		DisplayName: identity.DisplayName,
		PhotoURL:    identity.PhotoURL,
		AuthDate:    identity.AuthDate,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.TelegramID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Decode はトークンを検証してSessionに復元する。
// 署名不一致・期限切れ・構造不正はすべて同一に「セッションなし」として扱い、
// falseを返す。エラーは返さない（fail-closed）。
func (c *Codec) Decode(token string) (*model.Session, bool) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{},
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok {
		return nil, false
	}

	session := &model.Session{
		Identity: model.Identity{
			TelegramID:  claims.TelegramID,
			Username:    claims.Username,
			DisplayName: claims.DisplayName,
			PhotoURL:    claims.PhotoURL,
			AuthDate:    claims.AuthDate,
		},
		IsLoggedIn: true,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, true
}
