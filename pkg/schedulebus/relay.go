package schedulebus

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/nao1215/capstone/pkg/event"
)

// defaultSubjectPrefix はNATSサブジェクトの既定のプレフィックス。
const defaultSubjectPrefix = "capstone"

// Conn はRelayが使用するNATS接続の操作。*nats.Conn が実装する。
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Relay はローカルのバスとNATSを橋渡しする。
// EmitChanged はローカルに通知したうえでNATSへ送信し、
// 他プロセスから届いた変更はローカルのバスにだけ通知する。
type Relay struct {
	bus     *Bus
	conn    Conn
	subject string
	// origin はこのRelayの識別子。自身が送信したイベントを受信時に無視するために使う。
	origin string
	logger *log.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewRelay は新しいRelayを生成する。prefixが空の場合は "capstone" を使用する。
func NewRelay(bus *Bus, conn Conn, prefix string, logger *log.Logger) *Relay {
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Relay{
		bus:     bus,
		conn:    conn,
		subject: fmt.Sprintf("%s.schedule.changed", prefix),
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Subject はRelayが送受信するNATSサブジェクトを返す。
func (r *Relay) Subject() string {
	return r.subject
}

// Start はNATSの購読を開始する。
func (r *Relay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub != nil {
		return errors.New("Relayは既に開始しています")
	}
	sub, err := r.conn.Subscribe(r.subject, r.handle)
	if err != nil {
		return fmt.Errorf("スケジュール変更の購読に失敗: %w", err)
	}
	r.sub = sub
	return nil
}

// Close はNATSの購読を解除する。
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub == nil {
		return nil
	}
	err := r.sub.Unsubscribe()
	r.sub = nil
	if err != nil {
		return fmt.Errorf("スケジュール変更の購読解除に失敗: %w", err)
	}
	return nil
}

// EmitChanged はローカルのバスに通知し、他プロセスへ変更を送信する。
// 送信の失敗はログに記録するだけで、ローカルの通知には影響しない。
func (r *Relay) EmitChanged() {
	if err := r.Publish(event.ScheduleChangedData{}); err != nil {
		r.logger.Printf("[Relay] スケジュール変更の送信に失敗: %v", err)
	}
}

// Publish はローカルのバスに通知したうえで、dataを含む変更イベントをNATSへ送信する。
func (r *Relay) Publish(data event.ScheduleChangedData) error {
	r.bus.EmitChanged()

	aggregateID := ""
	if data.ProjectID != 0 {
		aggregateID = fmt.Sprintf("project-%d", data.ProjectID)
	}
	ev, err := event.New(r.origin, aggregateID, event.AggregateTypeSchedule, event.TypeScheduleChanged, data)
	if err != nil {
		return err
	}
	payload, err := event.Marshal(ev)
	if err != nil {
		return err
	}
	if err := r.conn.Publish(r.subject, payload); err != nil {
		return fmt.Errorf("NATSへの送信に失敗: %w", err)
	}
	return nil
}

// handle はNATSから届いたメッセージを処理する。
func (r *Relay) handle(msg *nats.Msg) {
	ev, err := event.Unmarshal(msg.Data)
	if err != nil {
		r.logger.Printf("[Relay] 不正なメッセージを無視しました: %v", err)
		return
	}
	if ev.Origin == r.origin {
		return
	}
	if ev.EventType != event.TypeScheduleChanged {
		return
	}
	r.bus.EmitChanged()
}
