package tokenstore

import (
	"context"
	"sync"
)

// Memory はプロセス内メモリに資格情報を保持するストア。
// テストや永続化が不要な一時セッションで使用する。
type Memory struct {
	mu   sync.RWMutex
	keys Keys
	data map[string]string
}

// NewMemory は新しいメモリストアを生成する。
func NewMemory(keys Keys) *Memory {
	return &Memory{
		keys: keys.withDefaults(),
		data: make(map[string]string),
	}
}

// Access は現在のアクセストークンを返す。
func (m *Memory) Access(_ context.Context) (string, error) {
	return m.get(m.keys.Access), nil
}

// SetAccess はアクセストークンを保存する。
func (m *Memory) SetAccess(_ context.Context, token string) error {
	m.set(m.keys.Access, token)
	return nil
}

// Refresh は現在のリフレッシュトークンを返す。
func (m *Memory) Refresh(_ context.Context) (string, error) {
	return m.get(m.keys.Refresh), nil
}

// SetRefresh はリフレッシュトークンを保存する。
func (m *Memory) SetRefresh(_ context.Context, token string) error {
	m.set(m.keys.Refresh, token)
	return nil
}

// Clear は両方のトークンを消去する。
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	delete(m.data, m.keys.Access)
	delete(m.data, m.keys.Refresh)
	m.mu.Unlock()
	return nil
}

func (m *Memory) get(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key]
}

func (m *Memory) set(key, value string) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}
