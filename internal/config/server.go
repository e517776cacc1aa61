package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Server はモックAPIサーバーの設定。
type Server struct {
	// Port は待ち受けポート。
	Port string
	// JWTSecret はアクセストークンの署名鍵。
	JWTSecret string
	// DBPath はSQLiteデータベースファイルのパス。
	DBPath string
	// AccessTokenTTL はアクセストークンの有効期間。
	AccessTokenTTL time.Duration
	// RefreshTokenTTL はリフレッシュトークンの有効期間。
	RefreshTokenTTL time.Duration
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// Seed が真の場合、空のデータベースにデモデータを投入する。
	Seed bool
	// NATS は課題やイベントの変更を他プロセスへ中継する設定。
	NATS NATS
}

// LoadServer はモックAPIサーバーの設定を環境変数から読み込む。
// envFileの扱いはLoadと同じ。
func LoadServer(envFile string) (*Server, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	accessTTL, err := time.ParseDuration(getEnvOr("ACCESS_TOKEN_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTLのパースに失敗: %w", err)
	}
	refreshTTL, err := time.ParseDuration(getEnvOr("REFRESH_TOKEN_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("REFRESH_TOKEN_TTLのパースに失敗: %w", err)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("トークンの有効期間は正の値が必要です: access=%s, refresh=%s", accessTTL, refreshTTL)
	}

	var origins []string
	for _, o := range strings.Split(getEnvOr("ALLOWED_ORIGINS", "http://localhost:5173"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Server{
		Port:            getEnvOr("PORT", "8080"),
		JWTSecret:       getEnvOr("JWT_SECRET", "dev-secret-key"),
		DBPath:          getEnvOr("DB_PATH", "mockapi.db"),
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		AllowedOrigins:  origins,
		Seed:            getEnvOr("SEED", "true") == "true",
		NATS: NATS{
			URL:    os.Getenv("NATS_URL"),
			Prefix: getEnvOr("NATS_PREFIX", "capstone"),
		},
	}, nil
}

// getEnvOr は環境変数の値を返す。未設定または空の場合はfallbackを返す。
func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
