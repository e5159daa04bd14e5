package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/musedinners/gateway/internal/metrics"
	"github.com/musedinners/gateway/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionReader     middleware.SessionReader
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFEnabled       bool
	CSRFConfig        middleware.CSRFConfig

	// 認証
	Verifier  AssertionVerifier
	Sanitizer NameSanitizer
	Avatars   AvatarURLValidator
	Users     UserUpserter
	Sessions  SessionManagerInterface

	// ゲートウェイ
	Gateway http.Handler

	// メトリクス
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → SessionContext → Logging → (CSRF)
//
// セッションは注入のみで認可はしない。/api/* は追加でAPI全般レート制限、
// /auth/callback は認証専用レート制限が適用される。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSessionContextMiddleware(deps.SessionReader))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.CSRFEnabled {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
	}

	authHandler := NewAuthHandler(
		deps.Verifier, deps.Sanitizer, deps.Avatars,
		deps.Users, deps.Sessions, deps.Metrics,
	)

	// ヘルスチェック（認証・レート制限の外）
	r.Get("/health", handleHealth)

	// Prometheusスクレイプ用エンドポイント
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		// コールバックはHMAC総当たり対策のため専用レート制限をかける
		r.With(deps.RateLimiter.AuthMiddleware()).Get("/callback", authHandler.Callback)

		// セッション管理
		r.Get("/session", authHandler.Session)
		r.Post("/logout", authHandler.Logout)
	})

	// ゲートウェイ: /api/* の全メソッドをupstreamへ転送する
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Handle("/api/*", deps.Gateway)
	})

	return r
}

// handleHealth はプロセスの生存確認エンドポイント。
// upstreamには接続しない（ゲートウェイ自体の生存のみを示す）。
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
