package schedulebus

import (
	"errors"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/nao1215/capstone/pkg/event"
)

// fakeConn はメッセージを同期的に配送するテスト用のNATS接続。
// 実際のNATSと同様に、送信者自身の購読にも配送する。
type fakeConn struct {
	mu         sync.Mutex
	handlers   map[string][]nats.MsgHandler
	published  [][]byte
	publishErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{handlers: make(map[string][]nats.MsgHandler)}
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.mu.Lock()
	c.published = append(c.published, data)
	handlers := append([]nats.MsgHandler(nil), c.handlers[subject]...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(&nats.Msg{Subject: subject, Data: data})
	}
	return nil
}

func (c *fakeConn) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[subject] = append(c.handlers[subject], cb)
	return &nats.Subscription{Subject: subject}, nil
}

// TestRelay はRelayによるプロセス間の変更通知を検証する。
func TestRelay(t *testing.T) {
	t.Parallel()

	t.Run("他プロセスの変更がローカルのバスに通知されること", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn()

		busA, busB := New(), New()
		relayA := NewRelay(busA, conn, "", nil)
		relayB := NewRelay(busB, conn, "", nil)
		if err := relayA.Start(); err != nil {
			t.Fatalf("relayA.Start()でエラーが発生: %v", err)
		}
		if err := relayB.Start(); err != nil {
			t.Fatalf("relayB.Start()でエラーが発生: %v", err)
		}

		var countA, countB int
		busA.Subscribe(func() { countA++ })
		busB.Subscribe(func() { countB++ })

		relayA.EmitChanged()

		// 送信元はローカル通知の1回だけ（自身のエコーは無視する）
		if countA != 1 {
			t.Errorf("countA = %d, want 1", countA)
		}
		if countB != 1 {
			t.Errorf("countB = %d, want 1", countB)
		}
	})

	t.Run("サブジェクトにプレフィックスが付くこと", func(t *testing.T) {
		t.Parallel()

		r := NewRelay(New(), newFakeConn(), "school", nil)
		if r.Subject() != "school.schedule.changed" {
			t.Errorf("Subject() = %q, want %q", r.Subject(), "school.schedule.changed")
		}
		if NewRelay(New(), newFakeConn(), "", nil).Subject() != "capstone.schedule.changed" {
			t.Error("既定のプレフィックスがcapstoneではない")
		}
	})

	t.Run("送信内容がScheduleChangedイベントであること", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn()
		r := NewRelay(New(), conn, "", nil)
		if err := r.Publish(event.ScheduleChangedData{ProjectID: 4, Reason: "assignment.created"}); err != nil {
			t.Fatalf("Publish()でエラーが発生: %v", err)
		}

		if len(conn.published) != 1 {
			t.Fatalf("published = %d, want 1", len(conn.published))
		}
		ev, err := event.Unmarshal(conn.published[0])
		if err != nil {
			t.Fatalf("Unmarshal()でエラーが発生: %v", err)
		}
		if ev.EventType != event.TypeScheduleChanged {
			t.Errorf("EventType = %q, want %q", ev.EventType, event.TypeScheduleChanged)
		}
		if ev.AggregateID != "project-4" {
			t.Errorf("AggregateID = %q, want %q", ev.AggregateID, "project-4")
		}
	})

	t.Run("送信に失敗してもローカルには通知されること", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn()
		conn.publishErr = errors.New("connection closed")

		bus := New()
		var count int
		bus.Subscribe(func() { count++ })

		r := NewRelay(bus, conn, "", nil)
		if err := r.Publish(event.ScheduleChangedData{}); err == nil {
			t.Error("Publish()がエラーを返すべきだが、nilが返った")
		}
		r.EmitChanged()

		if count != 2 {
			t.Errorf("count = %d, want 2", count)
		}
	})

	t.Run("不正なメッセージと他の種類のイベントは無視されること", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn()
		bus := New()
		var count int
		bus.Subscribe(func() { count++ })

		r := NewRelay(bus, conn, "", nil)
		if err := r.Start(); err != nil {
			t.Fatalf("Start()でエラーが発生: %v", err)
		}

		_ = conn.Publish(r.Subject(), []byte(`{broken`))

		other, _ := event.New("another-process", "1", event.AggregateType("Team"), event.Type("TeamDeleted"), nil)
		payload, _ := event.Marshal(other)
		_ = conn.Publish(r.Subject(), payload)

		if count != 0 {
			t.Errorf("count = %d, want 0", count)
		}
	})

	t.Run("二重に開始するとエラーが返ること", func(t *testing.T) {
		t.Parallel()

		r := NewRelay(New(), newFakeConn(), "", nil)
		if err := r.Start(); err != nil {
			t.Fatalf("Start()でエラーが発生: %v", err)
		}
		if err := r.Start(); err == nil {
			t.Fatal("2回目のStart()がエラーを返すべきだが、nilが返った")
		}
	})
}
