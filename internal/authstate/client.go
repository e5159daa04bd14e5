// Package authstate はゲートウェイ自身のHTTPサーフェスを利用するクライアント側の
// 認証状態コンテナを提供する。
// 「誰がログインしているか」のキャッシュを明示的な状態・初期化・アクセサとして
// 保持し、グローバル変数は使わない。
//
// 状態遷移は Unknown → {SignedOut, SignedIn} の一方向で、
// SignedIn → SignedOut への遷移は明示的なサインアウトか、
// 次回Load時に遅延検出されるCookie期限切れによってのみ起こる。
// 自動リフレッシュやポーリングは行わない。
package authstate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/musedinners/gateway/internal/model"
)

// State は認証状態を表す。
type State int

// 認証状態。初期化前はUnknown。
const (
	StateUnknown State = iota
	StateSignedOut
	StateSignedIn
)

// ErrNotSignedIn はサインインが必要な操作を未ログインで呼んだ場合のエラー。
// 呼び出し側がログイン導線へのリダイレクトを判断する（このパッケージは
// リダイレクトを行わない）。
var ErrNotSignedIn = errors.New("not signed in")

// Client はゲートウェイのHTTPサーフェスに対する型付きクライアント。
// セッションCookieはcookiejarで自動的に保持・送信される。
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu       sync.Mutex
	state    State
	identity *model.Identity
}

// NewClient はClientを生成する。
// httpClientがnilの場合はcookiejar付きのデフォルトクライアントを使用する。
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		jar, _ := cookiejar.New(nil)
		httpClient = &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		state:      StateUnknown,
	}
}

// sessionResponse は GET /auth/session のレスポンスボディ。
type sessionResponse struct {
	User       *model.Identity `json:"user"`
	IsLoggedIn bool            `json:"isLoggedIn"`
}

// Load はセッション読み取りエンドポイントを1回だけ呼び、結果をキャッシュする。
// 既に初期化済みの場合は何もしない（ネットワークアクセスなし）。
func (c *Client) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUnknown {
		return nil
	}

	var resp sessionResponse
	if err := c.doJSON(ctx, http.MethodGet, "/auth/session", nil, &resp); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if resp.IsLoggedIn && resp.User != nil {
		c.state = StateSignedIn
		c.identity = resp.User
	} else {
		c.state = StateSignedOut
		c.identity = nil
	}
	return nil
}

// State は現在の認証状態を返す。Loadを呼ぶ前はStateUnknown。
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SignedIn はサインイン済みかどうかを返す。
func (c *Client) SignedIn() bool {
	return c.State() == StateSignedIn
}

// Identity はキャッシュされたIdentityのコピーを返す。未ログインの場合はnil。
func (c *Client) Identity() *model.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return nil
	}
	copied := *c.identity
	return &copied
}

// SubjectID は後続のAPI呼び出しのパラメータに使うtelegram idを返す純粋アクセサ。
// 副作用はない。未ログインの場合はfalseを返す。
func (c *Client) SubjectID() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSignedIn || c.identity == nil {
		return 0, false
	}
	return c.identity.TelegramID, true
}

// signOutResponse は POST /auth/logout のレスポンスボディ。
type signOutResponse struct {
	Success bool `json:"success"`
}

// SignOut はログアウトエンドポイントを呼び、成功した場合のみ
// ローカルキャッシュをクリアする（楽観的クリアはしない）。
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var resp signOutResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, &resp); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("logout endpoint reported failure")
	}

	// ネットワーク呼び出しの完了と同期してクリアする
	c.state = StateSignedOut
	c.identity = nil
	return nil
}
