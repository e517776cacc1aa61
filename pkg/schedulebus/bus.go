// Package schedulebus はスケジュールの変更を画面やコマンド間で通知するための
// 小さなpublish/subscribeバスを提供する。
//
// 通知にはペイロードがなく、受け取った側は必要な期間のスケジュールを取得し直す。
// Relay を使うとNATS経由で別プロセスの変更も受け取れる。
package schedulebus

import "sync"

// Listener はスケジュール変更時に呼ばれる関数。
type Listener func()

// Notifier はスケジュール変更を通知する。
// Bus と Relay の両方が実装する。
type Notifier interface {
	EmitChanged()
}

// entry は登録済みのリスナー。
type entry struct {
	id uint64
	fn Listener
}

// Bus はスケジュール変更の購読者を管理する。ゼロ値では使えないため New で生成する。
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []entry
}

// New は新しいバスを生成する。
func New() *Bus {
	return &Bus{}
}

// Subscribe はリスナーを登録し、登録解除用の関数を返す。
// 登録解除関数は何度呼び出してもよい。
func (b *Bus) Subscribe(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, entry{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// EmitChanged は登録順に全リスナーを呼び出す。
// 通知中に登録解除されたリスナーのうち、まだ呼ばれていないものは呼ばない。
func (b *Bus) EmitChanged() {
	b.mu.Lock()
	snapshot := make([]entry, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.Unlock()

	for _, e := range snapshot {
		if !b.subscribed(e.id) {
			continue
		}
		e.fn()
	}
}

// Len は登録中のリスナー数を返す。
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.listeners {
		if e.id == id {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

func (b *Bus) subscribed(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.listeners {
		if e.id == id {
			return true
		}
	}
	return false
}
