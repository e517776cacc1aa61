// Package config はCLIとモックAPIサーバーの設定を読み込む。
//
// CLIの設定はviperで管理し、CAPSTONE_ 接頭辞付きの環境変数で上書きする。
// どちらの設定も、.envファイルが存在すれば先に環境変数として読み込む。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nao1215/capstone/pkg/httpclient"
	"github.com/nao1215/capstone/pkg/tokenstore"
)

// envPrefix はCLI設定の環境変数接頭辞。
const envPrefix = "CAPSTONE"

// DefaultEnvFile は既定で読み込む.envファイルのパス。
const DefaultEnvFile = ".env"

// Backend は資格情報ストアの種類。
type Backend string

const (
	// BackendMemory はプロセス内メモリに保存する。
	BackendMemory Backend = "memory"
	// BackendFile はJSONファイルに保存する。
	BackendFile Backend = "file"
	// BackendRedis はRedisに保存する。
	BackendRedis Backend = "redis"
	// BackendSQLite はSQLiteデータベースに保存する。
	BackendSQLite Backend = "sqlite"
)

// Client はCLI（APIクライアント）の設定。
type Client struct {
	// BaseURL は接続先APIサーバーのベースURL。
	BaseURL string
	// Timeout は通常のリクエストのタイムアウト。
	Timeout time.Duration
	// RefreshTimeout はリフレッシュ呼び出しのタイムアウト。0の場合はTimeoutと同じ。
	RefreshTimeout time.Duration
	// RefreshPath はリフレッシュエンドポイントのパス。
	RefreshPath string
	// Keys は資格情報の保存キー名。
	Keys tokenstore.Keys
	// Store は資格情報ストアの設定。
	Store Store
	// NATS はスケジュール変更の中継設定。
	NATS NATS
}

// Store は資格情報ストアの設定。
type Store struct {
	// Backend はストアの種類。
	Backend Backend
	// FilePath はBackendFileの保存先。
	FilePath string
	// RedisAddr はBackendRedisの接続先。
	RedisAddr string
	// RedisPrefix はRedisキーの接頭辞。
	RedisPrefix string
	// RedisTTL はRedisに保存した資格情報の有効期間。0の場合は無期限。
	RedisTTL time.Duration
	// SQLitePath はBackendSQLiteのデータベースファイル。
	SQLitePath string
}

// NATS はスケジュール変更を他プロセスへ中継するための設定。
type NATS struct {
	// URL はNATSサーバーのURL。空の場合は中継しない。
	URL string
	// Prefix はサブジェクトの接頭辞。
	Prefix string
}

// Load はCLIの設定を読み込む。
// envFileが空の場合はカレントディレクトリの .env を読み込む（存在しなければ無視する）。
func Load(envFile string) (*Client, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("timeout", httpclient.DefaultTimeout)
	v.SetDefault("refresh_timeout", time.Duration(0))
	v.SetDefault("refresh_path", httpclient.DefaultRefreshPath)
	v.SetDefault("access_token_key", tokenstore.DefaultAccessKey)
	v.SetDefault("refresh_token_key", tokenstore.DefaultRefreshKey)
	v.SetDefault("store.backend", string(BackendFile))
	v.SetDefault("store.file", defaultCredentialsPath())
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_prefix", tokenstore.DefaultRedisPrefix)
	v.SetDefault("store.redis_ttl", time.Duration(0))
	v.SetDefault("store.sqlite_path", "capstone.db")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.prefix", "capstone")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Client{
		BaseURL:        strings.TrimRight(v.GetString("base_url"), "/"),
		Timeout:        v.GetDuration("timeout"),
		RefreshTimeout: v.GetDuration("refresh_timeout"),
		RefreshPath:    v.GetString("refresh_path"),
		Keys: tokenstore.Keys{
			Access:  v.GetString("access_token_key"),
			Refresh: v.GetString("refresh_token_key"),
		},
		Store: Store{
			Backend:     Backend(strings.ToLower(v.GetString("store.backend"))),
			FilePath:    v.GetString("store.file"),
			RedisAddr:   v.GetString("store.redis_addr"),
			RedisPrefix: v.GetString("store.redis_prefix"),
			RedisTTL:    v.GetDuration("store.redis_ttl"),
			SQLitePath:  v.GetString("store.sqlite_path"),
		},
		NATS: NATS{
			URL:    v.GetString("nats.url"),
			Prefix: v.GetString("nats.prefix"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate は設定値の整合性を検証する。
func (c *Client) validate() error {
	if c.BaseURL == "" {
		return errors.New("CAPSTONE_BASE_URLが空です")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("CAPSTONE_TIMEOUTは正の値が必要です: %s", c.Timeout)
	}
	if c.RefreshTimeout < 0 {
		return fmt.Errorf("CAPSTONE_REFRESH_TIMEOUTは0以上が必要です: %s", c.RefreshTimeout)
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("未対応の資格情報ストアです: %q", c.Store.Backend)
	}
	return nil
}

// ClientOptions は設定に対応するhttpclientのオプションを返す。
func (c *Client) ClientOptions() []httpclient.Option {
	opts := []httpclient.Option{
		httpclient.WithTimeout(c.Timeout),
		httpclient.WithRefreshPath(c.RefreshPath),
	}
	if c.RefreshTimeout > 0 {
		opts = append(opts, httpclient.WithRefreshTimeout(c.RefreshTimeout))
	}
	return opts
}

// loadDotEnv は.envファイルを環境変数として読み込む。既に設定済みの環境変数は上書きしない。
func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf(".envファイルの確認に失敗(%s): %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf(".envファイルの読み込みに失敗(%s): %w", path, err)
	}
	return nil
}

// defaultCredentialsPath は資格情報ファイルの既定の保存先を返す。
func defaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".capstone", "credentials.json")
	}
	return filepath.Join(dir, "capstone", "credentials.json")
}
