package api

import (
	"context"
	"fmt"
)

// EventInput はイベントの作成・更新内容。更新では空のフィールドを変更しない。
type EventInput struct {
	Title string `json:"title,omitempty"`
	// StartAt、EndAt は "2006-01-02T15:04:05" または "2006-01-02" 形式。
	StartAt  string    `json:"startAt,omitempty"`
	EndAt    string    `json:"endAt,omitempty"`
	Type     EventType `json:"type,omitempty"`
	Location string    `json:"location,omitempty"`
}

// CreateEvent はプロジェクトにイベントを作成する。
func (c *Client) CreateEvent(ctx context.Context, projectID int64, in EventInput) (*Event, error) {
	var out Event
	if err := c.http.PostJSON(ctx, projectPath(projectID, "/events"), in, &out); err != nil {
		return nil, fmt.Errorf("イベントの作成に失敗: %w", err)
	}
	c.emitChanged()
	return &out, nil
}

// UpdateEvent はイベントを部分更新する。
func (c *Client) UpdateEvent(ctx context.Context, projectID, eventID int64, in EventInput) (*Event, error) {
	var out Event
	path := projectPath(projectID, fmt.Sprintf("/events/%d", eventID))
	if err := c.http.PatchJSON(ctx, path, nil, in, &out); err != nil {
		return nil, fmt.Errorf("イベントの更新に失敗: %w", err)
	}
	c.emitChanged()
	return &out, nil
}

// DeleteEvent はイベントを削除する。
func (c *Client) DeleteEvent(ctx context.Context, projectID, eventID int64) error {
	path := projectPath(projectID, fmt.Sprintf("/events/%d", eventID))
	if err := c.http.DeleteJSON(ctx, path, nil); err != nil {
		return fmt.Errorf("イベントの削除に失敗: %w", err)
	}
	c.emitChanged()
	return nil
}
