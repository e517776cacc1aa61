package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/nao1215/capstone/pkg/tokenstore"
)

// clearEnv はテスト中にCAPSTONE_ 接頭辞の環境変数が影響しないよう空にする。
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"CAPSTONE_BASE_URL", "CAPSTONE_TIMEOUT", "CAPSTONE_REFRESH_TIMEOUT", "CAPSTONE_REFRESH_PATH",
		"CAPSTONE_ACCESS_TOKEN_KEY", "CAPSTONE_REFRESH_TOKEN_KEY",
		"CAPSTONE_STORE_BACKEND", "CAPSTONE_STORE_FILE", "CAPSTONE_STORE_REDIS_ADDR",
		"CAPSTONE_STORE_REDIS_PREFIX", "CAPSTONE_STORE_REDIS_TTL", "CAPSTONE_STORE_SQLITE_PATH",
		"CAPSTONE_NATS_URL", "CAPSTONE_NATS_PREFIX",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key) //nolint:errcheck
	}
}

// TestLoad はLoad関数を検証する。環境変数を変更するため並列実行しない。
func TestLoad(t *testing.T) {
	t.Run("環境変数が無い場合は既定値が使われること", func(t *testing.T) {
		clearEnv(t)
		t.Chdir(t.TempDir())

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.BaseURL != "http://localhost:8080" {
			t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "http://localhost:8080")
		}
		if cfg.Timeout != 10*time.Second {
			t.Errorf("Timeout = %v, want %v", cfg.Timeout, 10*time.Second)
		}
		if cfg.RefreshTimeout != 0 {
			t.Errorf("RefreshTimeout = %v, want 0", cfg.RefreshTimeout)
		}
		if cfg.RefreshPath != "/auth/refresh" {
			t.Errorf("RefreshPath = %q, want %q", cfg.RefreshPath, "/auth/refresh")
		}
		if cfg.Keys != tokenstore.DefaultKeys() {
			t.Errorf("Keys = %+v, want %+v", cfg.Keys, tokenstore.DefaultKeys())
		}
		if cfg.Store.Backend != BackendFile {
			t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, BackendFile)
		}
		if cfg.Store.RedisPrefix != tokenstore.DefaultRedisPrefix {
			t.Errorf("Store.RedisPrefix = %q, want %q", cfg.Store.RedisPrefix, tokenstore.DefaultRedisPrefix)
		}
		if cfg.NATS.URL != "" {
			t.Errorf("NATS.URL = %q, want empty", cfg.NATS.URL)
		}
		if cfg.NATS.Prefix != "capstone" {
			t.Errorf("NATS.Prefix = %q, want %q", cfg.NATS.Prefix, "capstone")
		}
	})

	t.Run("CAPSTONE_接頭辞の環境変数で上書きできること", func(t *testing.T) {
		clearEnv(t)
		t.Chdir(t.TempDir())
		t.Setenv("CAPSTONE_BASE_URL", "https://api.example.com/")
		t.Setenv("CAPSTONE_TIMEOUT", "3s")
		t.Setenv("CAPSTONE_REFRESH_TIMEOUT", "5s")
		t.Setenv("CAPSTONE_ACCESS_TOKEN_KEY", "at")
		t.Setenv("CAPSTONE_REFRESH_TOKEN_KEY", "rt")
		t.Setenv("CAPSTONE_STORE_BACKEND", "Redis")
		t.Setenv("CAPSTONE_STORE_REDIS_TTL", "1h")
		t.Setenv("CAPSTONE_NATS_URL", "nats://localhost:4222")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.BaseURL != "https://api.example.com" {
			t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "https://api.example.com")
		}
		if cfg.Timeout != 3*time.Second {
			t.Errorf("Timeout = %v, want %v", cfg.Timeout, 3*time.Second)
		}
		if cfg.RefreshTimeout != 5*time.Second {
			t.Errorf("RefreshTimeout = %v, want %v", cfg.RefreshTimeout, 5*time.Second)
		}
		if cfg.Keys != (tokenstore.Keys{Access: "at", Refresh: "rt"}) {
			t.Errorf("Keys = %+v, want at/rt", cfg.Keys)
		}
		if cfg.Store.Backend != BackendRedis {
			t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, BackendRedis)
		}
		if cfg.Store.RedisTTL != time.Hour {
			t.Errorf("Store.RedisTTL = %v, want %v", cfg.Store.RedisTTL, time.Hour)
		}
		if cfg.NATS.URL != "nats://localhost:4222" {
			t.Errorf("NATS.URL = %q, want %q", cfg.NATS.URL, "nats://localhost:4222")
		}
		if got := len(cfg.ClientOptions()); got != 3 {
			t.Errorf("len(ClientOptions()) = %d, want 3", got)
		}
	})

	t.Run(".envファイルの値が読み込まれること", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		envFile := filepath.Join(dir, "capstone.env")
		if err := os.WriteFile(envFile, []byte("CAPSTONE_REFRESH_PATH=/api/auth/refresh\n"), 0o600); err != nil {
			t.Fatalf("envファイルの作成に失敗: %v", err)
		}

		cfg, err := Load(envFile)
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.RefreshPath != "/api/auth/refresh" {
			t.Errorf("RefreshPath = %q, want %q", cfg.RefreshPath, "/api/auth/refresh")
		}
	})

	t.Run("明示した.envファイルが無い場合はエラーになること", func(t *testing.T) {
		clearEnv(t)

		if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
			t.Fatal("Load()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("不正な設定値はエラーになること", func(t *testing.T) {
		tests := []struct {
			name string
			key  string
			val  string
		}{
			{name: "未対応のバックエンド", key: "CAPSTONE_STORE_BACKEND", val: "dynamodb"},
			{name: "0以下のタイムアウト", key: "CAPSTONE_TIMEOUT", val: "0s"},
			{name: "負のリフレッシュタイムアウト", key: "CAPSTONE_REFRESH_TIMEOUT", val: "-1s"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				clearEnv(t)
				t.Chdir(t.TempDir())
				t.Setenv(tt.key, tt.val)

				if _, err := Load(""); err == nil {
					t.Fatal("Load()がエラーを返すべきだが、nilが返った")
				}
			})
		}
	})
}

// TestOpenStore は各バックエンドのストアを開けることを検証する。
func TestOpenStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		name  string
		store Store
	}{
		{name: "memory", store: Store{Backend: BackendMemory}},
		{name: "file", store: Store{Backend: BackendFile, FilePath: filepath.Join(dir, "credentials.json")}},
		{name: "redis", store: Store{Backend: BackendRedis, RedisAddr: mr.Addr()}},
		{name: "sqlite", store: Store{Backend: BackendSQLite, SQLitePath: filepath.Join(dir, "capstone.db")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			cfg := &Client{Keys: tokenstore.DefaultKeys(), Store: tt.store}
			store, closeFn, err := cfg.OpenStore(ctx)
			if err != nil {
				t.Fatalf("OpenStore()でエラーが発生: %v", err)
			}
			t.Cleanup(func() {
				if err := closeFn(); err != nil {
					t.Errorf("closeでエラーが発生: %v", err)
				}
			})

			if err := tokenstore.SetPair(ctx, store, "access-1", "refresh-1"); err != nil {
				t.Fatalf("SetPair()でエラーが発生: %v", err)
			}
			got, err := store.Access(ctx)
			if err != nil {
				t.Fatalf("Access()でエラーが発生: %v", err)
			}
			if got != "access-1" {
				t.Errorf("Access() = %q, want %q", got, "access-1")
			}
		})
	}

	t.Run("Redisに接続できない場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		cfg := &Client{Store: Store{Backend: BackendRedis, RedisAddr: "127.0.0.1:1"}}
		if _, _, err := cfg.OpenStore(context.Background()); err == nil {
			t.Fatal("OpenStore()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("未対応のバックエンドはエラーになること", func(t *testing.T) {
		t.Parallel()

		cfg := &Client{Store: Store{Backend: "etcd"}}
		if _, _, err := cfg.OpenStore(context.Background()); err == nil {
			t.Fatal("OpenStore()がエラーを返すべきだが、nilが返った")
		}
	})
}
