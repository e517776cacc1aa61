package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nao1215/capstone/pkg/httpclient"
	"github.com/nao1215/capstone/pkg/schedulebus"
)

// Client はcapstoneプロジェクト管理APIのクライアント。
type Client struct {
	http     *httpclient.Client
	notifier schedulebus.Notifier
}

// Option はClientの設定を変更する関数。
type Option func(*Client)

// WithNotifier はスケジュール変更の通知先を設定する。
// 既定では何も通知しない。
func WithNotifier(n schedulebus.Notifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

// New は新しいクライアントを生成する。
func New(hc *httpclient.Client, opts ...Option) *Client {
	c := &Client{http: hc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTP は内部で使用する httpclient.Client を返す。
func (c *Client) HTTP() *httpclient.Client {
	return c.http
}

// emitChanged はスケジュールの変更を通知する。
func (c *Client) emitChanged() {
	if c.notifier != nil {
		c.notifier.EmitChanged()
	}
}

// projectPath はプロジェクト配下のリソースパスを返す。
func projectPath(projectID int64, rest string) string {
	return fmt.Sprintf("/api/projects/%d%s", projectID, rest)
}

// ListProjects はプロジェクト一覧を取得する。
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.http.GetJSON(ctx, "/api/projects", nil, &out); err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗: %w", err)
	}
	return out, nil
}

// ListTeams はチーム一覧を取得する。
func (c *Client) ListTeams(ctx context.Context) ([]Team, error) {
	var out []Team
	if err := c.http.GetJSON(ctx, "/api/teams", nil, &out); err != nil {
		return nil, fmt.Errorf("チーム一覧の取得に失敗: %w", err)
	}
	return out, nil
}

// ListProjectFeedback はプロジェクトのフィードバックを取得する。
func (c *Client) ListProjectFeedback(ctx context.Context, projectID int64) ([]Feedback, error) {
	var out []Feedback
	if err := c.http.GetJSON(ctx, projectPath(projectID, "/feedback"), nil, &out); err != nil {
		return nil, fmt.Errorf("フィードバックの取得に失敗: %w", err)
	}
	return out, nil
}

// ListProjectEvents はプロジェクトのイベントを取得する。
// from、toは "2006-01-02" 形式で、空の場合は条件に含めない。
func (c *Client) ListProjectEvents(ctx context.Context, projectID int64, from, to string) ([]Event, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}

	var out []Event
	if err := c.http.GetJSON(ctx, projectPath(projectID, "/events"), q, &out); err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗: %w", err)
	}
	return out, nil
}
