package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File は資格情報をJSONファイルに保存するストア。
// プロセスを再起動しても資格情報が維持される。
// ファイルはキー名から値へのJSONオブジェクトとして保存する。
type File struct {
	mu   sync.Mutex
	path string
	keys Keys
}

// NewFile は指定パスのJSONファイルを使用するストアを生成する。
// ファイルは最初の書き込み時に作成される。
func NewFile(path string, keys Keys) *File {
	return &File{path: path, keys: keys.withDefaults()}
}

// Access は現在のアクセストークンを返す。
func (f *File) Access(_ context.Context) (string, error) {
	return f.get(f.keys.Access)
}

// SetAccess はアクセストークンを保存する。
func (f *File) SetAccess(_ context.Context, token string) error {
	return f.update(func(m map[string]string) { m[f.keys.Access] = token })
}

// Refresh は現在のリフレッシュトークンを返す。
func (f *File) Refresh(_ context.Context) (string, error) {
	return f.get(f.keys.Refresh)
}

// SetRefresh はリフレッシュトークンを保存する。
func (f *File) SetRefresh(_ context.Context, token string) error {
	return f.update(func(m map[string]string) { m[f.keys.Refresh] = token })
}

// Clear は両方のトークンを消去する。ファイル内の他のキーは残す。
func (f *File) Clear(_ context.Context) error {
	return f.update(func(m map[string]string) {
		delete(m, f.keys.Access)
		delete(m, f.keys.Refresh)
	})
}

func (f *File) get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return "", err
	}
	return m[key], nil
}

// update はファイルを読み込み、変更を加えてから一時ファイル経由で置き換える。
func (f *File) update(mutate func(map[string]string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return err
	}
	mutate(m)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("資格情報のシリアライズに失敗: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("資格情報ディレクトリの作成に失敗: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("資格情報の書き込みに失敗: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("資格情報ファイルの権限設定に失敗: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("資格情報の書き込みに失敗: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("資格情報ファイルの置き換えに失敗: %w", err)
	}
	return nil
}

// load はファイルを読み込む。ファイルが存在しない場合は空のマップを返す。
func (f *File) load() (map[string]string, error) {
	m := make(map[string]string)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("資格情報ファイルの読み込みに失敗: %w", err)
	}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("資格情報ファイルのパースに失敗: %w", err)
	}
	return m, nil
}
