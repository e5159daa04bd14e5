package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/musedinners/gateway/internal/config"
	"github.com/musedinners/gateway/internal/gateway"
	"github.com/musedinners/gateway/internal/handler"
	"github.com/musedinners/gateway/internal/logger"
	"github.com/musedinners/gateway/internal/metrics"
	"github.com/musedinners/gateway/internal/middleware"
	"github.com/musedinners/gateway/internal/security"
	"github.com/musedinners/gateway/internal/session"
	"github.com/musedinners/gateway/internal/telegram"
	"github.com/musedinners/gateway/internal/userstore"
	"github.com/prometheus/client_golang/prometheus"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("upstream", cfg.UpstreamAPIURL),
	)

	return runServe(cfg)
}

// runServe はゲートウェイサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. セキュリティサービスの初期化とupstream URLの事前検証
	guard := security.NewOutboundGuard()
	if cfg.OutboundGuard {
		if err := guard.ValidateURL(cfg.UpstreamAPIURL); err != nil {
			return fmt.Errorf("upstream URL failed outbound guard validation: %w", err)
		}
	}
	sanitizer := security.NewNameSanitizer()

	// 2. 外向きHTTPクライアント。
	//    本番ではSSRFガード付き、ローカル開発ではタイムアウトのみのクライアントを使う。
	var outboundClient *http.Client
	if cfg.OutboundGuard {
		outboundClient = guard.NewSafeClient(cfg.UpstreamTimeout)
	} else {
		outboundClient = &http.Client{Timeout: cfg.UpstreamTimeout}
	}

	// 3. 認証まわりの初期化
	verifier, err := telegram.NewVerifier(cfg.TelegramBotHash)
	if err != nil {
		return fmt.Errorf("failed to create telegram verifier: %w", err)
	}

	codec, err := session.NewCodec(cfg.SessionSecret, time.Duration(cfg.SessionMaxAge)*time.Second)
	if err != nil {
		return fmt.Errorf("failed to create session codec: %w", err)
	}
	sessions := session.NewManager(codec, session.CookieConfig{
		Name:   cfg.SessionCookieName,
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
		MaxAge: cfg.SessionMaxAge,
	})

	userClient := userstore.NewClient(outboundClient, slog.Default(), cfg.UpstreamAPIURL, cfg.APIKey)

	// 4. メトリクスとゲートウェイの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	proxy, err := gateway.NewProxy(outboundClient, slog.Default(), collector, cfg.UpstreamAPIURL, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create gateway proxy: %w", err)
	}

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigFromLimits(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionReader:     sessions,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFEnabled:       cfg.CSRFEnabled,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		Verifier:  verifier,
		Sanitizer: sanitizer,
		Avatars:   guard,
		Users:     userClient,
		Sessions:  sessions,

		Gateway: proxy,

		Metrics:         collector,
		MetricsGatherer: registry,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("gateway server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down gateway server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("gateway server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
