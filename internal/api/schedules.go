package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ListSchedules は全予定を取得する。
func (c *Client) ListSchedules(ctx context.Context) ([]Schedule, error) {
	var out []Schedule
	if err := c.http.GetJSON(ctx, "/api/schedules", nil, &out); err != nil {
		return nil, fmt.Errorf("予定の取得に失敗: %w", err)
	}
	return out, nil
}

// RangeQuery は期間を指定した予定の検索条件。
type RangeQuery struct {
	// From、To は "2006-01-02" 形式の期間（両端を含む）。
	From string
	To   string
	// ProjectID が0でなければ対象プロジェクトを限定する。
	ProjectID int64
	// TeamID が0でなければ、そのチームのプロジェクトを対象にする。
	TeamID int64
	// OnlyEvents が真の場合、課題を含めずイベントのみ返す。
	OnlyEvents bool
}

// values はクエリパラメータに変換する。
func (q RangeQuery) values() url.Values {
	v := url.Values{}
	v.Set("from", q.From)
	v.Set("to", q.To)
	if q.ProjectID != 0 {
		v.Set("projectId", strconv.FormatInt(q.ProjectID, 10))
	}
	if q.TeamID != 0 {
		v.Set("teamId", strconv.FormatInt(q.TeamID, 10))
	}
	if q.OnlyEvents {
		v.Set("onlyEvents", "true")
	}
	return v
}

// ListSchedulesInRange は期間内の予定を取得する。
func (c *Client) ListSchedulesInRange(ctx context.Context, q RangeQuery) ([]Schedule, error) {
	if q.From == "" || q.To == "" {
		return nil, fmt.Errorf("期間の指定が必要です: from=%q, to=%q", q.From, q.To)
	}

	var out []Schedule
	if err := c.http.GetJSON(ctx, "/api/schedules/range", q.values(), &out); err != nil {
		return nil, fmt.Errorf("期間内の予定の取得に失敗: %w", err)
	}
	return out, nil
}
