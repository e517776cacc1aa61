package mockapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/capstone/internal/api"
	"github.com/nao1215/capstone/pkg/middleware"
)

// assignmentScheduleStatuses は課題の状態とスケジュール上の表現の対応。
var assignmentScheduleStatuses = map[string]string{
	string(api.AssignmentCompleted): "completed",
	string(api.AssignmentOngoing):   "in-progress",
	string(api.AssignmentPending):   "pending",
}

// eventScheduleTypes はイベント種別とスケジュール上の表現の対応。
var eventScheduleTypes = map[string]string{
	string(api.EventMeeting):      "meeting",
	string(api.EventDeadline):     "deadline",
	string(api.EventPresentation): "presentation",
}

// assignmentSchedule は課題をスケジュールに変換する。
func assignmentSchedule(a Assignment, projectTitle string) api.Schedule {
	status, ok := assignmentScheduleStatuses[a.Status]
	if !ok {
		status = "in-progress"
	}
	return api.Schedule{
		ID:           fmt.Sprintf("A-%d", a.ID),
		Title:        a.Title,
		Type:         "deadline",
		Status:       status,
		Priority:     "medium",
		Date:         formatPart(a.DueDate, dateLayout),
		Time:         formatPart(a.DueDate, clockLayout),
		Location:     "オンライン",
		ProjectTitle: projectTitle,
	}
}

// eventSchedule はイベントをスケジュールに変換する。
func eventSchedule(e Event, projectTitle string) api.Schedule {
	typ, ok := eventScheduleTypes[e.Type]
	if !ok {
		typ = "task"
	}
	return api.Schedule{
		ID:           fmt.Sprintf("E-%d", e.ID),
		Title:        e.Title,
		Type:         typ,
		Status:       "scheduled",
		Priority:     "low",
		Date:         formatPart(e.StartAt, dateLayout),
		Time:         formatPart(e.StartAt, clockLayout),
		EndTime:      formatPart(e.EndAt, clockLayout),
		Location:     e.Location,
		ProjectTitle: projectTitle,
	}
}

// sortSchedules は日付、時刻の順に並べる。日付や時刻が無いものは先頭に来る。
func sortSchedules(items []api.Schedule) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		return items[i].Time < items[j].Time
	})
}

// handleListSchedules は最初のプロジェクトの課題とイベントを統合したスケジュールを返すハンドラを返す。
func (s *Server) handleListSchedules() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		out := []api.Schedule{}

		p, err := s.queries.FirstProject(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusOK, out)
			return
		}
		if err != nil {
			s.internalError(c, "スケジュールの取得に失敗しました", err)
			return
		}

		assignments, err := s.queries.ListAssignmentsByProject(ctx, p.ID)
		if err != nil {
			s.internalError(c, "スケジュールの取得に失敗しました", err)
			return
		}
		for _, a := range assignments {
			out = append(out, assignmentSchedule(a, p.Title))
		}

		events, err := s.queries.ListEventsByProject(ctx, p.ID)
		if err != nil {
			s.internalError(c, "スケジュールの取得に失敗しました", err)
			return
		}
		for _, e := range events {
			out = append(out, eventSchedule(e, p.Title))
		}

		sortSchedules(out)
		c.JSON(http.StatusOK, out)
	}
}

// rangeProject は期間スケジュールの対象プロジェクトを選ぶ。
// projectID、teamIDの最初のプロジェクト、全体の最初のプロジェクトの順に探す。
func (s *Server) rangeProject(ctx context.Context, projectID, teamID int64) (Project, error) {
	switch {
	case projectID != 0:
		return s.queries.GetProject(ctx, projectID)
	case teamID != 0:
		return s.queries.FirstProjectByTeam(ctx, teamID)
	default:
		return s.queries.FirstProject(ctx)
	}
}

// queryID はクエリパラメータを整数として取り出す。省略時は0を返す。
func queryID(c *gin.Context, name string) (int64, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		middleware.AbortWithError(c, http.StatusBadRequest, fmt.Sprintf("%sが不正です", name))
		return 0, false
	}
	return id, true
}

// handleListSchedulesInRange は [from, to] の日付範囲のスケジュールを返すハンドラを返す。
// onlyEventsが真の場合は課題を含めない。
func (s *Server) handleListSchedulesInRange() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, err := time.ParseInLocation(dateLayout, c.Query("from"), time.Local)
		if err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "fromは2006-01-02形式で指定してください")
			return
		}
		to, err := time.ParseInLocation(dateLayout, c.Query("to"), time.Local)
		if err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "toは2006-01-02形式で指定してください")
			return
		}
		if to.Before(from) {
			middleware.AbortWithError(c, http.StatusBadRequest, "toはfrom以降の日付を指定してください")
			return
		}
		projectID, ok := queryID(c, "projectId")
		if !ok {
			return
		}
		teamID, ok := queryID(c, "teamId")
		if !ok {
			return
		}
		onlyEvents := c.Query("onlyEvents") == "true"

		ctx := c.Request.Context()
		out := []api.Schedule{}
		p, err := s.rangeProject(ctx, projectID, teamID)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusOK, out)
			return
		}
		if err != nil {
			s.internalError(c, "スケジュールの取得に失敗しました", err)
			return
		}

		if !onlyEvents {
			assignments, err := s.queries.ListAssignmentsByProject(ctx, p.ID)
			if err != nil {
				s.internalError(c, "スケジュールの取得に失敗しました", err)
				return
			}
			for _, a := range assignments {
				due, ok := nullTime(a.DueDate)
				if !ok {
					continue
				}
				day := due.Format(dateLayout)
				if day < from.Format(dateLayout) || day > to.Format(dateLayout) {
					continue
				}
				out = append(out, assignmentSchedule(a, p.Title))
			}
		}

		events, err := s.queries.ListEventsInRange(ctx, p.ID,
			from.Format(localDateTime), to.AddDate(0, 0, 1).Format(localDateTime))
		if err != nil {
			s.internalError(c, "スケジュールの取得に失敗しました", err)
			return
		}
		for _, e := range events {
			out = append(out, eventSchedule(e, p.Title))
		}

		sortSchedules(out)
		c.JSON(http.StatusOK, out)
	}
}
