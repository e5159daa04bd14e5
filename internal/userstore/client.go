// Package userstore はupstreamマッチングAPIのユーザーストアクライアントを提供する。
// ユーザーの永続化はこのアプリケーションでは行わず、すべてupstreamに委譲する。
package userstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/musedinners/gateway/internal/model"
)

// apiKeyHeader はアプリケーションをupstreamに対して認証するヘッダー名。
const apiKeyHeader = "X-API-Key"

// upsertRequest はユーザーアップサートAPIのリクエストボディを表す。
type upsertRequest struct {
	TelegramID  int64  `json:"telegram_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Client はupstreamユーザーストアAPIのクライアント。
// ログイン成功のたびにIdentityをアップサートし、古いログインイベントの
// 属性を上書きする。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// UpsertUser は認証済みIdentityをupstreamのユーザーストアに作成・更新する。
// 2xx以外のステータスはエラーとして返す（呼び出し元がapi_errorとして扱う）。
func (c *Client) UpsertUser(ctx context.Context, identity model.Identity) error {
	body, err := json.Marshal(upsertRequest{
		TelegramID:  identity.TelegramID,
		Username:    identity.Username,
		DisplayName: identity.DisplayName,
	})
	if err != nil {
		return fmt.Errorf("ユーザーアップサートリクエストのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ユーザーストアAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.Int64("telegram_id", identity.TelegramID),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("ユーザーストアAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.Int64("telegram_id", identity.TelegramID),
		)
		return fmt.Errorf("ユーザーストアAPIがステータス %d を返しました", resp.StatusCode)
	}

	return nil
}
