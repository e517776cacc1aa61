package tokenstore

import "context"

const (
	// DefaultAccessKey はアクセストークンの既定の保存キー。
	DefaultAccessKey = "access_token"
	// DefaultRefreshKey はリフレッシュトークンの既定の保存キー。
	DefaultRefreshKey = "refresh_token"
)

// Store は資格情報ペアの読み書きを行うストア。
// 値が保存されていないキーの読み出しはエラーではなく空文字列を返す。
type Store interface {
	// Access は現在のアクセストークンを返す。
	Access(ctx context.Context) (string, error)
	// SetAccess はアクセストークンを保存する。
	SetAccess(ctx context.Context, token string) error
	// Refresh は現在のリフレッシュトークンを返す。
	Refresh(ctx context.Context) (string, error)
	// SetRefresh はリフレッシュトークンを保存する。
	SetRefresh(ctx context.Context, token string) error
	// Clear は両方のトークンを消去する。何度呼び出してもよい。
	Clear(ctx context.Context) error
}

// Keys は資格情報ペアの保存キー名。
type Keys struct {
	// Access はアクセストークンの保存キー。
	Access string
	// Refresh はリフレッシュトークンの保存キー。
	Refresh string
}

// DefaultKeys は既定の保存キー名を返す。
func DefaultKeys() Keys {
	return Keys{Access: DefaultAccessKey, Refresh: DefaultRefreshKey}
}

// withDefaults は空のキー名を既定値で補う。
func (k Keys) withDefaults() Keys {
	if k.Access == "" {
		k.Access = DefaultAccessKey
	}
	if k.Refresh == "" {
		k.Refresh = DefaultRefreshKey
	}
	return k
}

// SetPair はアクセストークンとリフレッシュトークンをまとめて保存する。
// refreshが空の場合、既存のリフレッシュトークンは変更しない。
func SetPair(ctx context.Context, s Store, access, refresh string) error {
	if err := s.SetAccess(ctx, access); err != nil {
		return err
	}
	if refresh == "" {
		return nil
	}
	return s.SetRefresh(ctx, refresh)
}
