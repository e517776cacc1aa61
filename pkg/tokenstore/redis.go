package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix はRedisキーの既定のプレフィックス。
const DefaultRedisPrefix = "capstone:session:"

// Redis は資格情報をRedisに保存するストア。
// 複数プロセスで同じセッションを共有する場合に使用する。
type Redis struct {
	client redis.UniversalClient
	prefix string
	keys   Keys
	// ttl は保存した値の有効期間。0の場合は期限なし。
	ttl time.Duration
}

// NewRedis はRedisストアを生成する。prefixが空の場合は "capstone:session:" を使用する。
func NewRedis(client redis.UniversalClient, prefix string, keys Keys, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{
		client: client,
		prefix: prefix,
		keys:   keys.withDefaults(),
		ttl:    ttl,
	}
}

// Access は現在のアクセストークンを返す。
func (r *Redis) Access(ctx context.Context) (string, error) {
	return r.get(ctx, r.keys.Access)
}

// SetAccess はアクセストークンを保存する。
func (r *Redis) SetAccess(ctx context.Context, token string) error {
	return r.set(ctx, r.keys.Access, token)
}

// Refresh は現在のリフレッシュトークンを返す。
func (r *Redis) Refresh(ctx context.Context) (string, error) {
	return r.get(ctx, r.keys.Refresh)
}

// SetRefresh はリフレッシュトークンを保存する。
func (r *Redis) SetRefresh(ctx context.Context, token string) error {
	return r.set(ctx, r.keys.Refresh, token)
}

// Clear は両方のトークンを消去する。
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key(r.keys.Access), r.key(r.keys.Refresh)).Err(); err != nil {
		return fmt.Errorf("Redisからの資格情報削除に失敗: %w", err)
	}
	return nil
}

func (r *Redis) get(ctx context.Context, name string) (string, error) {
	v, err := r.client.Get(ctx, r.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("Redisからの資格情報取得に失敗: %w", err)
	}
	return v, nil
}

func (r *Redis) set(ctx context.Context, name, value string) error {
	if err := r.client.Set(ctx, r.key(name), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("Redisへの資格情報保存に失敗: %w", err)
	}
	return nil
}

func (r *Redis) key(name string) string {
	return r.prefix + name
}
