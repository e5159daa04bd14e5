package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// minSessionSecretLength はセッション署名シークレットの最小長（バイト）。
// これ未満のシークレットはブルートフォース耐性が不十分なため起動時に拒否する。
const minSessionSecretLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Upstream（マッチングAPI）
	UpstreamAPIURL  string
	APIKey          string
	UpstreamTimeout time.Duration

	// Telegram認証
	TelegramBotName string
	TelegramBotHash string // ボットトークンのSHA-256ダイジェスト（hex）

	// Session
	SessionSecret     string
	SessionCookieName string
	SessionMaxAge     int // 秒。デフォルトは30日

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// Security
	OutboundGuard bool // ゲートウェイの外向きリクエストにSSRFガードを適用する
	CSRFEnabled   bool

	// Rate Limit（req/min/subject）
	RateLimitGeneral int
	RateLimitAuth    int
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.UpstreamAPIURL = os.Getenv("UPSTREAM_API_URL")
	if cfg.UpstreamAPIURL == "" {
		missing = append(missing, "UPSTREAM_API_URL")
	}

	cfg.APIKey = os.Getenv("API_KEY")
	if cfg.APIKey == "" {
		missing = append(missing, "API_KEY")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.TelegramBotHash = os.Getenv("TELEGRAM_BOT_HASH")
	if cfg.TelegramBotHash == "" {
		missing = append(missing, "TELEGRAM_BOT_HASH")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// シークレット長の検証。短いシークレットでの本番稼働を防ぐ。
	if len(cfg.SessionSecret) < minSessionSecretLength {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes, got %d", minSessionSecretLength, len(cfg.SessionSecret))
	}

	// ボットハッシュはHMAC鍵として使うため、SHA-256ダイジェストのhex表現であることを検証する。
	if raw, err := hex.DecodeString(cfg.TelegramBotHash); err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("TELEGRAM_BOT_HASH must be a hex-encoded SHA-256 digest")
	}

	// Upstream URLの検証
	u, err := url.Parse(cfg.UpstreamAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("UPSTREAM_API_URL must be an absolute http(s) URL: %q", cfg.UpstreamAPIURL)
	}

	// Optional fields with defaults
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.TelegramBotName = getEnvString("TELEGRAM_BOT_NAME", "ZuitzerBot")
	cfg.SessionCookieName = getEnvString("SESSION_COOKIE_NAME", "muse_dinners_session")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 60*60*24*30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.OutboundGuard = getEnvBool("OUTBOUND_GUARD", true)
	cfg.CSRFEnabled = getEnvBool("CSRF_ENABLED", false)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
