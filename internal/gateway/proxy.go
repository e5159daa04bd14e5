// Package gateway はupstreamマッチングAPIへのリバースプロキシを提供する。
// 受信した /api/* リクエストを設定済みのベースURLに対して再構築し、
// サービス資格情報（X-API-Key）を付与して転送する。
// APIキーはアプリケーションをupstreamに認証するデプロイシークレットであり、
// エンドユーザーの資格情報ではない。
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/musedinners/gateway/internal/metrics"
	"github.com/musedinners/gateway/internal/middleware"
	"github.com/musedinners/gateway/internal/model"
)

const (
	// apiKeyHeader はアプリケーションをupstreamに対して認証するヘッダー名。
	apiKeyHeader = "X-API-Key"
	// requestIDHeader はupstreamとのログ突き合わせ用の相関IDヘッダー名。
	requestIDHeader = "X-Request-ID"
)

// Proxy は /api/* 配下の全メソッドを受け付けてupstreamへ転送するハンドラー。
// 受信1リクエストにつき外向き呼び出しはちょうど1回（リトライ・バッチなし）。
// リクエスト間で共有する可変状態は持たない。
type Proxy struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    *url.URL
	apiKey     string
	prefix     string // 受信パスから取り除くプレフィックス
}

// NewProxy はProxyを生成する。ベースURLのパース失敗はエラーを返す。
func NewProxy(httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector, rawBaseURL, apiKey string) (*Proxy, error) {
	baseURL, err := url.Parse(strings.TrimSuffix(rawBaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL: %w", err)
	}
	return &Proxy{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		baseURL:    baseURL,
		apiKey:     apiKey,
		prefix:     "/api",
	}, nil
}

// ServeHTTP はリクエストをupstreamへ転送し、レスポンスをミラーする。
//
// 転送の規則:
//   - パスはプレフィックス以降をそのまま、クエリパラメータは一切変更せず引き継ぐ
//   - X-API-Keyを必ず付与し、受信したセッションCookieは決して転送しない
//   - 非読み取りメソッドのJSONボディはパースして再シリアライズする
//     （不正なJSONはupstreamに到達する前に400で拒否）
//   - upstreamのステータスコードはそのままミラーする
//   - トランスポート例外は500、タイムアウトは504の統一エンベロープに変換する
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	targetURL := p.buildTargetURL(r)

	// 1. 転送ボディの準備
	body, contentType, ok := p.prepareBody(w, r)
	if !ok {
		return // 400は書き込み済み
	}

	// 2. 外向きリクエストの構築。受信ヘッダーは引き継がず、
	//    必要なヘッダーだけを明示的に設定する（Cookieの漏洩防止）。
	req, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, body)
	if err != nil {
		p.logger.Error("failed to build upstream request",
			slog.String("error", err.Error()),
			slog.String("target", targetURL),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	requestID := uuid.New().String()
	req.Header.Set(apiKeyHeader, p.apiKey)
	req.Header.Set(requestIDHeader, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	// 3. 転送実行。外向き呼び出しはこの1回のみ。
	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.writeTransportError(w, r, err, requestID)
		return
	}
	defer resp.Body.Close()

	p.metrics.RecordForward(resp.StatusCode, time.Since(start))

	// 4. レスポンスのミラー
	p.mirrorResponse(w, resp, requestID)
}

// buildTargetURL は受信リクエストからupstreamのターゲットURLを再構築する。
// プレフィックス以降のパスセグメントとクエリパラメータをそのまま維持する。
func (p *Proxy) buildTargetURL(r *http.Request) string {
	rest := strings.TrimPrefix(r.URL.Path, p.prefix)
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}

	target := *p.baseURL
	target.Path = p.baseURL.Path + rest
	target.RawQuery = r.URL.RawQuery
	return target.String()
}

// prepareBody は転送するボディとContent-Typeを決定する。
// JSONボディはパースして再シリアライズし、不正なJSONは400で拒否して
// okにfalseを返す（upstreamには接続しない）。
// JSON以外のボディは元のContent-Typeのまま生バイトを転送する。
func (p *Proxy) prepareBody(w http.ResponseWriter, r *http.Request) (io.Reader, string, bool) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return nil, "", true
	}

	contentType := r.Header.Get("Content-Type")
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		p.logger.Error("failed to read request body", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return nil, "", false
	}

	// Content-Type未指定はJSONとして扱う（upstream APIの既定）
	if contentType == "" {
		contentType = "application/json"
	}

	if strings.Contains(contentType, "application/json") && len(raw) > 0 {
		var payload any
		if err := json.Unmarshal(raw, &payload); err != nil {
			p.metrics.RecordForwardError(metrics.ForwardErrBadJSON)
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidJSONError())
			return nil, "", false
		}
		normalized, err := json.Marshal(payload)
		if err != nil {
			middleware.WriteInternalServerError(w)
			return nil, "", false
		}
		return bytes.NewReader(normalized), "application/json", true
	}

	return bytes.NewReader(raw), contentType, true
}

// mirrorResponse はupstreamのレスポンスをクライアントへミラーする。
// ステータスコードは必ずそのまま返す。JSONレスポンスはデコードして再エンコードし、
// デコード失敗時はnullボディを返す（プロキシ自体は失敗にしない）。
// JSON以外は生テキストとupstreamのContent-Typeを引き継ぎ、無い場合はtext/plainとする。
func (p *Proxy) mirrorResponse(w http.ResponseWriter, resp *http.Response, requestID string) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		p.logger.Error("failed to read upstream response body",
			slog.String("error", err.Error()),
			slog.String("request_id", requestID),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var payload any
		if err := json.Unmarshal(raw, &payload); err != nil {
			// パース失敗はnullボディとして返す
			payload = nil
		}
		body, err := json.Marshal(payload)
		if err != nil {
			middleware.WriteInternalServerError(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		w.Write(body)
		return
	}

	if contentType == "" {
		contentType = "text/plain"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	w.Write(raw)
}

// writeTransportError は転送中のトランスポート例外を統一エンベロープに変換する。
// タイムアウトは504、その他は500。これがプロキシ唯一の致命パスであり、
// いずれの場合もプロセスは落とさない。
func (p *Proxy) writeTransportError(w http.ResponseWriter, r *http.Request, err error, requestID string) {
	p.logger.Error("upstream forward failed",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", requestID),
	)

	var netErr net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
	if timedOut {
		p.metrics.RecordForwardError(metrics.ForwardErrTimeout)
		middleware.WriteErrorResponse(w, http.StatusGatewayTimeout, model.NewUpstreamTimeoutError())
		return
	}

	p.metrics.RecordForwardError(metrics.ForwardErrTransport)
	// 内部のエラーメッセージは接続先情報を含みうるため、カテゴリのみ返す
	middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewUpstreamUnreachableError("接続エラー"))
}
