package config

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/nao1215/capstone/pkg/tokenstore"
)

// OpenStore は設定されたバックエンドの資格情報ストアを開く。
// 返されたclose関数は、ストアが保持する接続を解放する。
func (c *Client) OpenStore(ctx context.Context) (tokenstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch c.Store.Backend {
	case BackendMemory:
		return tokenstore.NewMemory(c.Keys), noop, nil

	case BackendFile:
		return tokenstore.NewFile(c.Store.FilePath, c.Keys), noop, nil

	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: c.Store.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("Redisへの接続に失敗(%s): %w", c.Store.RedisAddr, err)
		}
		return tokenstore.NewRedis(rdb, c.Store.RedisPrefix, c.Keys, c.Store.RedisTTL), rdb.Close, nil

	case BackendSQLite:
		db, err := sql.Open("sqlite", sqliteDSN(c.Store.SQLitePath))
		if err != nil {
			return nil, nil, fmt.Errorf("SQLiteのオープンに失敗(%s): %w", c.Store.SQLitePath, err)
		}
		db.SetMaxOpenConns(1)
		store, err := tokenstore.NewSQLite(ctx, db, c.Keys)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil
	}
	return nil, nil, fmt.Errorf("未対応の資格情報ストアです: %q", c.Store.Backend)
}

// sqliteDSN はWALモードとビジータイムアウトを指定したDSNを返す。
func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
