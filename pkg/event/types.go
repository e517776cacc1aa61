// Package event はスケジュール変更を他のプロセスへ伝えるためのイベント封筒を提供する。
//
// schedulebus.Relay がNATSへ送信するメッセージはこの形式でシリアライズされる。
package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeSchedule はスケジュール（課題と予定の合成ビュー）を表す。
	AggregateTypeSchedule AggregateType = "Schedule"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeScheduleChanged はスケジュールに何らかの変更があったことを表す。
	TypeScheduleChanged Type = "ScheduleChanged"
)

// Event はプロセス間で受け渡す変更イベント。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// Origin はイベントを発行したプロセスの識別子。自身が発行したイベントの判別に使用する。
	Origin string `json:"origin"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data,omitempty"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// ScheduleChangedData はScheduleChangedイベントのデータ。
type ScheduleChangedData struct {
	// ProjectID は変更があったプロジェクトのID。不明な場合は0。
	ProjectID int64 `json:"project_id,omitempty"`
	// Reason は変更の理由（例: "assignment.created"）。
	Reason string `json:"reason,omitempty"`
}
