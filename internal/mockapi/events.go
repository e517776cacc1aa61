package mockapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/capstone/internal/api"
	"github.com/nao1215/capstone/pkg/middleware"
)

// createEventRequest はイベント作成リクエストのJSON構造。
type createEventRequest struct {
	Title string `json:"title" binding:"required"`
	// StartAt、EndAt は "2006-01-02T15:04:05" または "2006-01-02" 形式。
	StartAt  string        `json:"startAt"`
	EndAt    string        `json:"endAt"`
	Type     api.EventType `json:"type"`
	Location string        `json:"location"`
}

// eventTypes は受け付けるイベント種別。
var eventTypes = map[api.EventType]bool{
	api.EventMeeting:      true,
	api.EventDeadline:     true,
	api.EventPresentation: true,
	api.EventEtc:          true,
}

// toEvent はDB行をAPIのイベント表現に変換する。
func toEvent(e Event) api.Event {
	return api.Event{
		ID:        e.ID,
		ProjectID: e.ProjectID,
		Title:     e.Title,
		StartAt:   nullString(e.StartAt),
		EndAt:     nullString(e.EndAt),
		Type:      api.EventType(e.Type),
		Location:  e.Location,
	}
}

// eventWindow はイベント検索の期間を [from, to) に変換する。
// 逆順の指定は入れ替えてから解釈し、日付のみの上限はその日の終わりまでを含むよう翌日0時に繰り上げる。
func eventWindow(fromStr, toStr string) (from, to time.Time, err error) {
	if from, err = parseDateTime(fromStr); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to, err = parseDateTime(toStr); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		from, to = to, from
		fromStr, toStr = toStr, fromStr
	}
	if !strings.Contains(toStr, "T") {
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}

// handleListEvents はプロジェクトのイベントを返すハンドラを返す。
// fromとtoの両方を指定した場合は期間と重なるイベントだけを返す。
func (s *Server) handleListEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}

		ctx := c.Request.Context()
		fromStr, toStr := c.Query("from"), c.Query("to")

		var rows []Event
		var err error
		if fromStr != "" && toStr != "" {
			from, to, werr := eventWindow(fromStr, toStr)
			if werr != nil {
				middleware.AbortWithError(c, http.StatusBadRequest, "from、toの日時形式が不正です")
				return
			}
			rows, err = s.queries.ListEventsInRange(ctx, p.ID, from.Format(localDateTime), to.Format(localDateTime))
		} else {
			rows, err = s.queries.ListEventsByProject(ctx, p.ID)
		}
		if err != nil {
			s.internalError(c, "イベントの取得に失敗しました", err)
			return
		}

		out := make([]api.Event, 0, len(rows))
		for _, e := range rows {
			out = append(out, toEvent(e))
		}
		c.JSON(http.StatusOK, out)
	}
}

// optionalDateTime は空でない日時文字列を正規化する。空の場合はNULLを返す。
func optionalDateTime(v string) (sql.NullString, error) {
	if v == "" {
		return sql.NullString{}, nil
	}
	t, err := parseDateTime(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: t.Format(localDateTime), Valid: true}, nil
}

// handleCreateEvent はイベントを作成するハンドラを返す。種別を省略した場合はETCとする。
func (s *Server) handleCreateEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}

		var req createEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "titleは必須です")
			return
		}
		if req.Type == "" {
			req.Type = api.EventEtc
		}
		if !eventTypes[req.Type] {
			middleware.AbortWithErrorData(c, http.StatusBadRequest, "typeが不正です", gin.H{"type": req.Type})
			return
		}
		start, err := optionalDateTime(req.StartAt)
		if err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "startAtの日時形式が不正です")
			return
		}
		end, err := optionalDateTime(req.EndAt)
		if err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "endAtの日時形式が不正です")
			return
		}

		ctx := c.Request.Context()
		e := Event{
			ProjectID: p.ID,
			Title:     req.Title,
			StartAt:   start,
			EndAt:     end,
			Type:      string(req.Type),
			Location:  req.Location,
		}
		id, err := s.queries.CreateEvent(ctx, e)
		if err != nil {
			s.internalError(c, "イベントの作成に失敗しました", err)
			return
		}
		e.ID = id
		s.touch(c, p.ID)
		s.emitChanged(p.ID, "event.created")
		c.JSON(http.StatusCreated, toEvent(e))
	}
}

// updateEventRequest はイベント更新リクエストのJSON構造。
// 省略したフィールドは変更しない。startAt、endAtに空文字列を指定すると日時を消去する。
type updateEventRequest struct {
	Title    *string        `json:"title"`
	StartAt  *string        `json:"startAt"`
	EndAt    *string        `json:"endAt"`
	Type     *api.EventType `json:"type"`
	Location *string        `json:"location"`
}

// loadEvent はパスパラメータevent_idのイベントを取得する。
// 見つからない場合はレスポンスを書き込んでfalseを返す。
func (s *Server) loadEvent(c *gin.Context, projectID int64) (Event, bool) {
	id, ok := pathID(c, "event_id")
	if !ok {
		return Event{}, false
	}
	e, err := s.queries.GetEvent(c.Request.Context(), projectID, id)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.AbortWithError(c, http.StatusNotFound, "イベントが見つかりません")
		return Event{}, false
	}
	if err != nil {
		s.internalError(c, "イベントの取得に失敗しました", err)
		return Event{}, false
	}
	return e, true
}

// handleUpdateEvent はイベントを部分更新するハンドラを返す。
func (s *Server) handleUpdateEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}
		e, ok := s.loadEvent(c, p.ID)
		if !ok {
			return
		}

		var req updateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "リクエストが不正です")
			return
		}
		if req.Title != nil {
			if *req.Title == "" {
				middleware.AbortWithError(c, http.StatusBadRequest, "titleは空にできません")
				return
			}
			e.Title = *req.Title
		}
		if req.StartAt != nil {
			start, err := optionalDateTime(*req.StartAt)
			if err != nil {
				middleware.AbortWithError(c, http.StatusBadRequest, "startAtの日時形式が不正です")
				return
			}
			e.StartAt = start
		}
		if req.EndAt != nil {
			end, err := optionalDateTime(*req.EndAt)
			if err != nil {
				middleware.AbortWithError(c, http.StatusBadRequest, "endAtの日時形式が不正です")
				return
			}
			e.EndAt = end
		}
		if req.Type != nil {
			if !eventTypes[*req.Type] {
				middleware.AbortWithErrorData(c, http.StatusBadRequest, "typeが不正です", gin.H{"type": *req.Type})
				return
			}
			e.Type = string(*req.Type)
		}
		if req.Location != nil {
			e.Location = *req.Location
		}

		if err := s.queries.UpdateEvent(c.Request.Context(), e); err != nil {
			s.internalError(c, "イベントの更新に失敗しました", err)
			return
		}
		s.touch(c, p.ID)
		s.emitChanged(p.ID, "event.updated")
		c.JSON(http.StatusOK, toEvent(e))
	}
}

// handleDeleteEvent はイベントを削除するハンドラを返す。
func (s *Server) handleDeleteEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.loadProject(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "event_id")
		if !ok {
			return
		}

		n, err := s.queries.DeleteEvent(c.Request.Context(), p.ID, id)
		if err != nil {
			s.internalError(c, "イベントの削除に失敗しました", err)
			return
		}
		if n == 0 {
			middleware.AbortWithError(c, http.StatusNotFound, "イベントが見つかりません")
			return
		}
		s.touch(c, p.ID)
		s.emitChanged(p.ID, "event.deleted")
		c.Status(http.StatusNoContent)
	}
}

// touch はプロジェクトの更新日時を現在時刻にする。失敗してもリクエストは失敗させない。
func (s *Server) touch(c *gin.Context, projectID int64) {
	if err := s.queries.TouchProject(c.Request.Context(), projectID, s.now().Format(localDateTime)); err != nil {
		s.logger.Printf("[MockAPI] プロジェクトの更新日時の記録に失敗: %v request_id=%s", err, middleware.GetRequestID(c))
	}
}
