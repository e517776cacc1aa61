package tokenstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/nao1215/capstone/pkg/migration"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite は資格情報をSQLiteデータベースに保存するストア。
// ドライバ（modernc.org/sqlite）の登録は呼び出し側で行う。
type SQLite struct {
	db   *sql.DB
	keys Keys
}

// NewSQLite はSQLiteストアを生成し、credentialsテーブルのマイグレーションを適用する。
func NewSQLite(ctx context.Context, db *sql.DB, keys Keys) (*SQLite, error) {
	if err := migration.Run(ctx, db, migrations, "migrations"); err != nil {
		return nil, fmt.Errorf("資格情報テーブルの初期化に失敗: %w", err)
	}
	return &SQLite{db: db, keys: keys.withDefaults()}, nil
}

// Access は現在のアクセストークンを返す。
func (s *SQLite) Access(ctx context.Context) (string, error) {
	return s.get(ctx, s.keys.Access)
}

// SetAccess はアクセストークンを保存する。
func (s *SQLite) SetAccess(ctx context.Context, token string) error {
	return s.set(ctx, s.keys.Access, token)
}

// Refresh は現在のリフレッシュトークンを返す。
func (s *SQLite) Refresh(ctx context.Context) (string, error) {
	return s.get(ctx, s.keys.Refresh)
}

// SetRefresh はリフレッシュトークンを保存する。
func (s *SQLite) SetRefresh(ctx context.Context, token string) error {
	return s.set(ctx, s.keys.Refresh, token)
}

// Clear は両方のトークンを消去する。
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE name IN (?, ?)", s.keys.Access, s.keys.Refresh); err != nil {
		return fmt.Errorf("資格情報の削除に失敗: %w", err)
	}
	return nil
}

func (s *SQLite) get(ctx context.Context, name string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM credentials WHERE name = ?", name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("資格情報の取得に失敗: %w", err)
	}
	return v, nil
}

func (s *SQLite) set(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = datetime('now')
	`, name, value)
	if err != nil {
		return fmt.Errorf("資格情報の保存に失敗: %w", err)
	}
	return nil
}
