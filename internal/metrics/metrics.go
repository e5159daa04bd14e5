// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ゲートウェイと認証ハンドラーから利用する。
type MetricsCollector interface {
	RecordForward(statusCode int, duration time.Duration)
	RecordForwardError(reason string)
	RecordLogin(result string)
	RecordSessionRead(loggedIn bool)
}

// ログイン結果のラベル値
const (
	LoginSuccess     = "success"
	LoginInvalidAuth = "invalid_auth"
	LoginAPIError    = "api_error"
)

// 転送エラー理由のラベル値
const (
	ForwardErrTimeout   = "timeout"
	ForwardErrTransport = "transport"
	ForwardErrBadJSON   = "bad_json"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	forwardTotal   *prometheus.CounterVec
	forwardErrors  *prometheus.CounterVec
	forwardLatency prometheus.Histogram
	loginTotal     *prometheus.CounterVec
	sessionReads   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		forwardTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "musedinners_forward_total",
			Help: "upstreamへ転送したリクエストのステータスコード別合計数",
		}, []string{"status_code"}),
		forwardErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "musedinners_forward_errors_total",
			Help: "upstreamへ転送できなかったリクエストの理由別合計数",
		}, []string{"reason"}),
		forwardLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "musedinners_forward_latency_seconds",
			Help:    "upstream転送のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "musedinners_login_total",
			Help: "Telegramログイン試行の結果別合計数",
		}, []string{"result"}),
		sessionReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "musedinners_session_reads_total",
			Help: "セッション読み取りのログイン状態別合計数",
		}, []string{"state"}),
	}

	reg.MustRegister(
		c.forwardTotal,
		c.forwardErrors,
		c.forwardLatency,
		c.loginTotal,
		c.sessionReads,
	)

	return c
}

// RecordForward は転送成功（upstreamが応答した）を記録する。
func (c *Collector) RecordForward(statusCode int, duration time.Duration) {
	c.forwardTotal.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.forwardLatency.Observe(duration.Seconds())
}

// RecordForwardError は転送失敗を理由別に記録する。
func (c *Collector) RecordForwardError(reason string) {
	c.forwardErrors.WithLabelValues(reason).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.loginTotal.WithLabelValues(result).Inc()
}

// RecordSessionRead はセッション読み取りの結果を記録する。
func (c *Collector) RecordSessionRead(loggedIn bool) {
	state := "logged_out"
	if loggedIn {
		state = "logged_in"
	}
	c.sessionReads.WithLabelValues(state).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector実装。テスト用。
type NopCollector struct{}

// RecordForward は何もしない。
func (NopCollector) RecordForward(statusCode int, duration time.Duration) {}

// RecordForwardError は何もしない。
func (NopCollector) RecordForwardError(reason string) {}

// RecordLogin は何もしない。
func (NopCollector) RecordLogin(result string) {}

// RecordSessionRead は何もしない。
func (NopCollector) RecordSessionRead(loggedIn bool) {}
