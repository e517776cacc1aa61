package mockapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/capstone/internal/api"
	"github.com/nao1215/capstone/pkg/middleware"
)

const (
	// defaultFeedbackLimit はフィードバック一覧の既定の件数。
	defaultFeedbackLimit = 3

	unassignedTeam    = "未割り当てチーム"
	unassignedProject = "未割り当てプロジェクト"
	noTeamDescription = "チームの紹介はありません。"
)

// projectStatuses はDBのプロジェクト状態とAPIの表現の対応。
var projectStatuses = map[string]api.ProjectStatus{
	"ACTIVE":    api.ProjectInProgress,
	"REVIEW":    api.ProjectReview,
	"COMPLETED": api.ProjectCompleted,
	"PLANNING":  api.ProjectPlanning,
}

// toProjectStatus はDBのプロジェクト状態を変換する。未知の値はplanningとする。
func toProjectStatus(v string) api.ProjectStatus {
	if st, ok := projectStatuses[v]; ok {
		return st
	}
	return api.ProjectPlanning
}

// pathID はパスパラメータを正の整数として取り出す。不正な場合は400を返してokが偽になる。
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		middleware.AbortWithError(c, http.StatusBadRequest, fmt.Sprintf("%sが不正です", name))
		return 0, false
	}
	return id, true
}

// loadProject はパスパラメータのプロジェクトを取得する。存在しない場合は404を返してokが偽になる。
func (s *Server) loadProject(c *gin.Context) (Project, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return Project{}, false
	}
	p, err := s.queries.GetProject(c.Request.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.AbortWithError(c, http.StatusNotFound, "プロジェクトが見つかりません")
		return Project{}, false
	}
	if err != nil {
		s.internalError(c, "プロジェクトの取得に失敗しました", err)
		return Project{}, false
	}
	return p, true
}

// progress は完了数と総数から四捨五入した進捗率を返す。
func progress(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

// lastUpdate はプロジェクトの最終更新日時を返す。更新日時が無ければ作成日時を使う。
func lastUpdate(p Project) string {
	if p.UpdatedAt.Valid && p.UpdatedAt.String != "" {
		return p.UpdatedAt.String
	}
	return p.CreatedAt
}

// countCompleted は完了した課題の数を返す。
func countCompleted(items []Assignment) int {
	n := 0
	for _, a := range items {
		if a.Status == string(api.AssignmentCompleted) {
			n++
		}
	}
	return n
}

// handleListProjects はプロジェクト一覧を返すハンドラを返す。
func (s *Server) handleListProjects() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		projects, err := s.queries.ListProjects(ctx)
		if err != nil {
			s.internalError(c, "プロジェクト一覧の取得に失敗しました", err)
			return
		}

		out := make([]api.Project, 0, len(projects))
		for _, p := range projects {
			item, err := s.toProject(ctx, p)
			if err != nil {
				s.internalError(c, "プロジェクト一覧の取得に失敗しました", err)
				return
			}
			out = append(out, item)
		}
		c.JSON(http.StatusOK, out)
	}
}

// toProject はプロジェクトにメンバーと課題の集計を加えてAPIの表現に変換する。
func (s *Server) toProject(ctx context.Context, p Project) (api.Project, error) {
	teamName := unassignedTeam
	if p.TeamName.Valid && p.TeamName.String != "" {
		teamName = p.TeamName.String
	}

	members := []api.Member{}
	if p.TeamID.Valid {
		rows, err := s.queries.ListTeamMembers(ctx, p.TeamID.Int64)
		if err != nil {
			return api.Project{}, err
		}
		for _, m := range rows {
			members = append(members, api.Member{ID: m.UserID, Name: m.Name})
		}
	}

	assignments, err := s.queries.ListAssignmentsByProject(ctx, p.ID)
	if err != nil {
		return api.Project{}, err
	}
	completed := countCompleted(assignments)

	name := p.Title
	if name == "" {
		name = fmt.Sprintf("プロジェクト #%d", p.ID)
	}

	var next *api.NextDeadline
	if due := s.upcomingAssignments(assignments); len(due) > 0 {
		next = &api.NextDeadline{Task: due[0].Title, Date: due[0].DueDate.String}
	}

	return api.Project{
		ID:           p.ID,
		Name:         name,
		Description:  teamName + "のキャップストーンプロジェクト",
		Status:       toProjectStatus(p.Status),
		Team:         teamName,
		LastUpdate:   lastUpdate(p),
		Progress:     progress(completed, len(assignments)),
		Members:      members,
		Milestones:   api.Milestones{Completed: completed, Total: len(assignments)},
		NextDeadline: next,
	}, nil
}

// upcomingAssignments は期限が現在以降の課題を期限順に返す。
// itemsは ListAssignmentsByProject の並び順であること。
func (s *Server) upcomingAssignments(items []Assignment) []Assignment {
	now := s.now()
	var out []Assignment
	for _, a := range items {
		due, ok := nullTime(a.DueDate)
		if !ok || due.Before(now) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// handleListTeams はチーム一覧を返すハンドラを返す。
func (s *Server) handleListTeams() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		teams, err := s.queries.ListTeams(ctx)
		if err != nil {
			s.internalError(c, "チーム一覧の取得に失敗しました", err)
			return
		}

		out := make([]api.Team, 0, len(teams))
		for _, t := range teams {
			item, err := s.toTeam(ctx, t)
			if err != nil {
				s.internalError(c, "チーム一覧の取得に失敗しました", err)
				return
			}
			out = append(out, item)
		}
		c.JSON(http.StatusOK, out)
	}
}

// toTeam はチームにメンバーと活動統計を加えてAPIの表現に変換する。
// 統計はチームの最初のプロジェクトを対象とする。
func (s *Server) toTeam(ctx context.Context, t Team) (api.Team, error) {
	rows, err := s.queries.ListTeamMembers(ctx, t.ID)
	if err != nil {
		return api.Team{}, err
	}

	var leader *api.TeamLeader
	members := make([]api.TeamMember, 0, len(rows))
	for _, m := range rows {
		role := "member"
		if m.Role == "leader" {
			role = "leader"
			if leader == nil {
				leader = &api.TeamLeader{Name: m.Name, Email: m.Email}
			}
		}
		members = append(members, api.TeamMember{
			ID:     m.UserID,
			Name:   m.Name,
			Email:  m.Email,
			Role:   role,
			Status: m.Status,
		})
	}

	description := t.Description
	if description == "" {
		description = noTeamDescription
	}

	team := api.Team{
		ID:           t.ID,
		Name:         t.Name,
		Project:      unassignedProject,
		Description:  description,
		Leader:       leader,
		Members:      members,
		CreatedAt:    t.CreatedAt,
		LastActivity: t.CreatedAt,
	}

	p, err := s.queries.FirstProjectByTeam(ctx, t.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return team, nil
	}
	if err != nil {
		return api.Team{}, err
	}
	team.Project = p.Title
	team.LastActivity = lastUpdate(p)

	meetings, err := s.queries.CountTeamEventsByType(ctx, t.ID, string(api.EventMeeting))
	if err != nil {
		return api.Team{}, err
	}
	assignments, err := s.queries.ListAssignmentsByProject(ctx, p.ID)
	if err != nil {
		return api.Team{}, err
	}
	team.Stats = api.TeamStats{
		Meetings: meetings,
		Tasks:    api.Milestones{Completed: countCompleted(assignments), Total: len(assignments)},
	}
	return team, nil
}

// handleListFeedback はプロジェクトのフィードバックを新しい順に返すハンドラを返す。
// limitを省略した場合は3件とする。
func (s *Server) handleListFeedback() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}

		limit := defaultFeedbackLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				middleware.AbortWithError(c, http.StatusBadRequest, "limitが不正です")
				return
			}
			limit = n
		}

		rows, err := s.queries.ListFeedbackByProject(c.Request.Context(), p.ID)
		if err != nil {
			s.internalError(c, "フィードバックの取得に失敗しました", err)
			return
		}
		if len(rows) > limit {
			rows = rows[:limit]
		}

		out := make([]api.Feedback, 0, len(rows))
		for _, f := range rows {
			out = append(out, api.Feedback{
				ID:        f.ID,
				ProjectID: f.ProjectID,
				Author:    f.Author,
				Content:   f.Content,
				Rating:    f.Rating,
				CreatedAt: f.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}
