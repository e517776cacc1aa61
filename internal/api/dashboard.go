package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// DefaultDeadlineLimit はダッシュボードに表示する期限の既定件数。
const DefaultDeadlineLimit = 5

// GetDashboardSummary はプロジェクトダッシュボードの集計を取得する。
func (c *Client) GetDashboardSummary(ctx context.Context, projectID int64) (*DashboardSummary, error) {
	var out DashboardSummary
	if err := c.http.GetJSON(ctx, projectPath(projectID, "/dashboard/summary"), nil, &out); err != nil {
		return nil, fmt.Errorf("ダッシュボード集計の取得に失敗: %w", err)
	}
	return &out, nil
}

// GetDashboardStatus はプロジェクトの進捗状況を取得する。
func (c *Client) GetDashboardStatus(ctx context.Context, projectID int64) (*DashboardStatus, error) {
	var out DashboardStatus
	if err := c.http.GetJSON(ctx, projectPath(projectID, "/dashboard/status"), nil, &out); err != nil {
		return nil, fmt.Errorf("進捗状況の取得に失敗: %w", err)
	}
	return &out, nil
}

// GetDashboardDeadlines は期限が近い課題を最大limit件取得する。
// limitが0以下の場合は DefaultDeadlineLimit を使う。
func (c *Client) GetDashboardDeadlines(ctx context.Context, projectID int64, limit int) ([]DeadlineItem, error) {
	if limit <= 0 {
		limit = DefaultDeadlineLimit
	}

	var out []DeadlineItem
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.http.GetJSON(ctx, projectPath(projectID, "/dashboard/deadlines"), q, &out); err != nil {
		return nil, fmt.Errorf("期限一覧の取得に失敗: %w", err)
	}
	return out, nil
}

// LoadDashboard は集計・進捗状況・期限一覧を並行して取得する。
// いずれかが失敗した場合は最初のエラーを返す。
func (c *Client) LoadDashboard(ctx context.Context, projectID int64) (*Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := c.GetDashboardSummary(ctx, projectID)
		d.Summary = summary
		return err
	})
	g.Go(func() error {
		status, err := c.GetDashboardStatus(ctx, projectID)
		d.Status = status
		return err
	})
	g.Go(func() error {
		deadlines, err := c.GetDashboardDeadlines(ctx, projectID, DefaultDeadlineLimit)
		d.Deadlines = deadlines
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
