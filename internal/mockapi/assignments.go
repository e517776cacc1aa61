package mockapi

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/capstone/internal/api"
	"github.com/nao1215/capstone/pkg/middleware"
)

// assignmentStatuses は受け付ける課題の状態。
var assignmentStatuses = map[api.AssignmentStatus]bool{
	api.AssignmentCompleted: true,
	api.AssignmentOngoing:   true,
	api.AssignmentPending:   true,
}

// toAssignment はDB行をAPIの課題表現に変換する。
func toAssignment(a Assignment) api.Assignment {
	return api.Assignment{
		ID:        a.ID,
		ProjectID: a.ProjectID,
		Title:     a.Title,
		DueDate:   nullString(a.DueDate),
		Status:    api.AssignmentStatus(a.Status),
	}
}

// dueDate は課題の期限を正規化する。空の場合はNULLを返す。
func dueDate(v string) (sql.NullString, error) {
	if v == "" {
		return sql.NullString{}, nil
	}
	t, err := parseDueDate(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: t.Format(localDateTime), Valid: true}, nil
}

// loadAssignment はパスパラメータの課題を取得する。存在しない場合は404を返してokが偽になる。
func (s *Server) loadAssignment(c *gin.Context, projectID int64) (Assignment, bool) {
	id, ok := pathID(c, "assignment_id")
	if !ok {
		return Assignment{}, false
	}
	a, err := s.queries.GetAssignment(c.Request.Context(), projectID, id)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.AbortWithError(c, http.StatusNotFound, "課題が見つかりません")
		return Assignment{}, false
	}
	if err != nil {
		s.internalError(c, "課題の取得に失敗しました", err)
		return Assignment{}, false
	}
	return a, true
}

// handleListAssignments はプロジェクトの課題を期限順に返すハンドラを返す。
func (s *Server) handleListAssignments() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}
		rows, err := s.queries.ListAssignmentsByProject(c.Request.Context(), p.ID)
		if err != nil {
			s.internalError(c, "課題の取得に失敗しました", err)
			return
		}
		out := make([]api.Assignment, 0, len(rows))
		for _, a := range rows {
			out = append(out, toAssignment(a))
		}
		c.JSON(http.StatusOK, out)
	}
}

// handleCreateAssignment は課題を作成するハンドラを返す。
// 状態を省略した場合はPENDING、日付のみの期限はその日の23:59とする。
func (s *Server) handleCreateAssignment() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}

		var req api.AssignmentInput
		if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
			middleware.AbortWithError(c, http.StatusBadRequest, "titleは必須です")
			return
		}
		if req.Status == "" {
			req.Status = api.AssignmentPending
		}
		if !assignmentStatuses[req.Status] {
			middleware.AbortWithErrorData(c, http.StatusBadRequest, "statusが不正です", gin.H{"status": req.Status})
			return
		}
		due, err := dueDate(req.DueDateISO)
		if err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "dueDateIsoの日時形式が不正です")
			return
		}

		a := Assignment{ProjectID: p.ID, Title: req.Title, DueDate: due, Status: string(req.Status)}
		id, err := s.queries.CreateAssignment(c.Request.Context(), CreateAssignmentParams{
			ProjectID: a.ProjectID,
			Title:     a.Title,
			DueDate:   a.DueDate,
			Status:    a.Status,
		})
		if err != nil {
			s.internalError(c, "課題の作成に失敗しました", err)
			return
		}
		a.ID = id
		s.touch(c, p.ID)
		s.emitChanged(p.ID, "assignment.created")
		c.JSON(http.StatusCreated, toAssignment(a))
	}
}

// handleUpdateAssignment は課題を部分更新するハンドラを返す。空のフィールドは変更しない。
func (s *Server) handleUpdateAssignment() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}
		a, ok := s.loadAssignment(c, p.ID)
		if !ok {
			return
		}

		var req api.AssignmentInput
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "リクエストが不正です")
			return
		}
		if req.Title != "" {
			a.Title = req.Title
		}
		if req.DueDateISO != "" {
			due, err := dueDate(req.DueDateISO)
			if err != nil {
				middleware.AbortWithError(c, http.StatusBadRequest, "dueDateIsoの日時形式が不正です")
				return
			}
			a.DueDate = due
		}
		if req.Status != "" {
			if !assignmentStatuses[req.Status] {
				middleware.AbortWithErrorData(c, http.StatusBadRequest, "statusが不正です", gin.H{"status": req.Status})
				return
			}
			a.Status = string(req.Status)
		}

		s.saveAssignment(c, a)
	}
}

// handleChangeAssignmentStatus はクエリパラメータvalueで課題の状態を変更するハンドラを返す。
func (s *Server) handleChangeAssignmentStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}
		a, ok := s.loadAssignment(c, p.ID)
		if !ok {
			return
		}

		status := api.AssignmentStatus(c.Query("value"))
		if !assignmentStatuses[status] {
			middleware.AbortWithErrorData(c, http.StatusBadRequest, "valueが不正です", gin.H{"value": status})
			return
		}
		a.Status = string(status)

		s.saveAssignment(c, a)
	}
}

// saveAssignment は課題を保存して変更を通知し、更新後の課題を返す。
func (s *Server) saveAssignment(c *gin.Context, a Assignment) {
	if err := s.queries.UpdateAssignment(c.Request.Context(), a); err != nil {
		s.internalError(c, "課題の更新に失敗しました", err)
		return
	}
	s.touch(c, a.ProjectID)
	s.emitChanged(a.ProjectID, "assignment.updated")
	c.JSON(http.StatusOK, toAssignment(a))
}

// handleDeleteAssignment は課題を削除するハンドラを返す。
func (s *Server) handleDeleteAssignment() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "assignment_id")
		if !ok {
			return
		}

		n, err := s.queries.DeleteAssignment(c.Request.Context(), p.ID, id)
		if err != nil {
			s.internalError(c, "課題の削除に失敗しました", err)
			return
		}
		if n == 0 {
			middleware.AbortWithError(c, http.StatusNotFound, "課題が見つかりません")
			return
		}
		s.touch(c, p.ID)
		s.emitChanged(p.ID, "assignment.deleted")
		c.Status(http.StatusNoContent)
	}
}
