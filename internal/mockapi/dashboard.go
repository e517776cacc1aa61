package mockapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/capstone/internal/api"
	"github.com/nao1215/capstone/pkg/middleware"
)

// recommendedActions はダッシュボードに表示する推奨アクション。
var recommendedActions = []string{
	"次のマイルストーンの準備",
	"チームミーティングの日程確定",
	"中間報告書の確認",
}

// summary はプロジェクトの課題を集計する。
func (s *Server) summary(ctx context.Context, p Project) (api.DashboardSummary, error) {
	var out api.DashboardSummary
	if p.TeamID.Valid {
		members, err := s.queries.ListTeamMembers(ctx, p.TeamID.Int64)
		if err != nil {
			return out, err
		}
		out.MemberCount = len(members)
	}

	assignments, err := s.queries.ListAssignmentsByProject(ctx, p.ID)
	if err != nil {
		return out, err
	}
	for _, a := range assignments {
		switch api.AssignmentStatus(a.Status) {
		case api.AssignmentPending:
			out.Assignments.Open++
		case api.AssignmentOngoing:
			out.Assignments.InProgress++
		case api.AssignmentCompleted:
			out.Assignments.Closed++
		}
	}
	out.ProgressPct = progress(out.Assignments.Closed, len(assignments))

	if next := s.upcomingAssignments(assignments); len(next) > 0 {
		out.Milestone = &api.DashboardMilestone{Title: next[0].Title, Date: next[0].DueDate.String}
	}
	return out, nil
}

// handleDashboardSummary はプロジェクトの集計を返すハンドラを返す。
func (s *Server) handleDashboardSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}
		out, err := s.summary(c.Request.Context(), p)
		if err != nil {
			s.internalError(c, "ダッシュボードの集計に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// handleDashboardStatus はプロジェクトの進捗率、最終更新日時、推奨アクションを返すハンドラを返す。
func (s *Server) handleDashboardStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}
		sum, err := s.summary(c.Request.Context(), p)
		if err != nil {
			s.internalError(c, "ダッシュボードの集計に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, api.DashboardStatus{
			ProgressPct: sum.ProgressPct,
			LastUpdate:  lastUpdate(p),
			Actions:     recommendedActions,
		})
	}
}

// handleDashboardDeadlines は期限が近い課題をlimit件まで返すハンドラを返す。
func (s *Server) handleDashboardDeadlines() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}

		limit := api.DefaultDeadlineLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				middleware.AbortWithError(c, http.StatusBadRequest, "limitが不正です")
				return
			}
			limit = n
		}

		assignments, err := s.queries.ListAssignmentsByProject(c.Request.Context(), p.ID)
		if err != nil {
			s.internalError(c, "課題の取得に失敗しました", err)
			return
		}
		next := s.upcomingAssignments(assignments)
		if len(next) > limit {
			next = next[:limit]
		}

		out := make([]api.DeadlineItem, 0, len(next))
		for _, a := range next {
			out = append(out, api.DeadlineItem{Title: a.Title, DueDate: a.DueDate.String})
		}
		c.JSON(http.StatusOK, out)
	}
}
