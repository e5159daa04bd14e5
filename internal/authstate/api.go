package authstate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/musedinners/gateway/internal/model"
)

// Queues は現在のキュー状態を取得する。
// GET /api/v1/queues
func (c *Client) Queues(ctx context.Context) (*model.QueuesResponse, error) {
	var resp model.QueuesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/queues", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// joinQueueRequest はキュー参加APIのリクエストボディ。
type joinQueueRequest struct {
	TelegramID string          `json:"telegram_id"`
	GroupPref  model.QueueType `json:"group_pref"`
}

// JoinQueue は指定のグループサイズ希望でキューに参加する。
// POST /api/v1/queues/join
func (c *Client) JoinQueue(ctx context.Context, queueType model.QueueType) error {
	if !queueType.Valid() {
		return fmt.Errorf("unknown queue type: %q", queueType)
	}
	subject, ok := c.SubjectID()
	if !ok {
		return ErrNotSignedIn
	}

	body := joinQueueRequest{
		TelegramID: strconv.FormatInt(subject, 10),
		GroupPref:  queueType,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/v1/queues/join", body, nil)
}

// leaveQueueRequest はキュー離脱APIのリクエストボディ。
type leaveQueueRequest struct {
	TelegramID string `json:"telegram_id"`
}

// LeaveQueue は現在参加中のキューから離脱する。
// POST /api/v1/queues/leave
func (c *Client) LeaveQueue(ctx context.Context) error {
	subject, ok := c.SubjectID()
	if !ok {
		return ErrNotSignedIn
	}

	body := leaveQueueRequest{TelegramID: strconv.FormatInt(subject, 10)}
	return c.doJSON(ctx, http.MethodPost, "/api/v1/queues/leave", body, nil)
}

// CurrentQueue はキュー状態から自分が参加中のキュー種別を判定する。
// どのキューにもいない場合は空文字列を返す。
func (c *Client) CurrentQueue(queues *model.QueuesResponse) model.QueueType {
	subject, ok := c.SubjectID()
	if !ok || queues == nil {
		return ""
	}
	id := strconv.FormatInt(subject, 10)

	for _, entry := range []struct {
		queueType model.QueueType
		users     []model.UserBrief
	}{
		{model.QueueOneOnOne, queues.OneOnOne},
		{model.QueueSmall, queues.Small},
		{model.QueueLarge, queues.Large},
	} {
		for _, user := range entry.users {
			if user.TelegramID == id {
				return entry.queueType
			}
		}
	}
	return ""
}

// CurrentMatch は現在のマッチング状態を取得する。
// GET /api/v1/match/current?telegram_id=...
// レスポンスはStatusで分岐するタグ付き契約（PENDINGのときGroupは空）。
func (c *Client) CurrentMatch(ctx context.Context) (*model.MatchCurrentResponse, error) {
	subject, ok := c.SubjectID()
	if !ok {
		return nil, ErrNotSignedIn
	}

	query := url.Values{"telegram_id": {strconv.FormatInt(subject, 10)}}
	var resp model.MatchCurrentResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/match/current?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MatchHistory は過去のマッチ履歴をページ指定で取得する。
// GET /api/v1/matches/history?page=&per_page=
func (c *Client) MatchHistory(ctx context.Context, page, perPage int) (*model.AllMatchesResponse, error) {
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	var resp model.AllMatchesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/matches/history?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doJSON はゲートウェイへのJSONリクエストを実行する。
// bodyがnil以外の場合はJSONとして送信し、outがnil以外の場合はレスポンスを
// JSONとしてデコードする。2xx以外のステータスはエラーとして返す。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d for %s %s", resp.StatusCode, method, path)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
