package api

import (
	"context"
	"fmt"
	"net/url"
)

// ListAssignments はプロジェクトの課題を期限順に取得する。
func (c *Client) ListAssignments(ctx context.Context, projectID int64) ([]Assignment, error) {
	var out []Assignment
	if err := c.http.GetJSON(ctx, projectPath(projectID, "/assignments"), nil, &out); err != nil {
		return nil, fmt.Errorf("課題一覧の取得に失敗: %w", err)
	}
	return out, nil
}

// CreateAssignment は課題を作成する。
func (c *Client) CreateAssignment(ctx context.Context, projectID int64, in AssignmentInput) (*Assignment, error) {
	var out Assignment
	if err := c.http.PostJSON(ctx, projectPath(projectID, "/assignments"), in, &out); err != nil {
		return nil, fmt.Errorf("課題の作成に失敗: %w", err)
	}
	c.emitChanged()
	return &out, nil
}

// UpdateAssignment は課題を更新する。inの空のフィールドは変更しない。
func (c *Client) UpdateAssignment(ctx context.Context, projectID, assignmentID int64, in AssignmentInput) (*Assignment, error) {
	var out Assignment
	path := projectPath(projectID, fmt.Sprintf("/assignments/%d", assignmentID))
	if err := c.http.PatchJSON(ctx, path, nil, in, &out); err != nil {
		return nil, fmt.Errorf("課題の更新に失敗: %w", err)
	}
	c.emitChanged()
	return &out, nil
}

// ChangeAssignmentStatus は課題の状態を変更する。
func (c *Client) ChangeAssignmentStatus(ctx context.Context, projectID, assignmentID int64, status AssignmentStatus) (*Assignment, error) {
	var out Assignment
	path := projectPath(projectID, fmt.Sprintf("/assignments/%d/status", assignmentID))
	if err := c.http.PatchJSON(ctx, path, url.Values{"value": {string(status)}}, nil, &out); err != nil {
		return nil, fmt.Errorf("課題の状態変更に失敗: %w", err)
	}
	c.emitChanged()
	return &out, nil
}

// DeleteAssignment は課題を削除する。
func (c *Client) DeleteAssignment(ctx context.Context, projectID, assignmentID int64) error {
	path := projectPath(projectID, fmt.Sprintf("/assignments/%d", assignmentID))
	if err := c.http.DeleteJSON(ctx, path, nil); err != nil {
		return fmt.Errorf("課題の削除に失敗: %w", err)
	}
	c.emitChanged()
	return nil
}
