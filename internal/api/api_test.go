package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nao1215/capstone/pkg/httpclient"
	"github.com/nao1215/capstone/pkg/tokenstore"
)

// countingNotifier はスケジュール変更の通知回数を数える。
type countingNotifier struct {
	n atomic.Int32
}

func (c *countingNotifier) EmitChanged() { c.n.Add(1) }

// recordedRequest はテストサーバーが受け取ったリクエストの要約。
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

// testServer は受け取ったリクエストを記録し、登録済みのレスポンスを返すテスト用サーバー。
type testServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	mux      *http.ServeMux
}

func newTestServer(t *testing.T) (*testServer, *httptest.Server) {
	t.Helper()

	s := &testServer{mux: http.NewServeMux()}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		}
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		s.mu.Lock()
		s.requests = append(s.requests, rec)
		s.mu.Unlock()
		s.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	return s, ts
}

// handle はパターンに固定のJSONレスポンスを登録する。
func (s *testServer) handle(pattern string, status int, body string) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

// last は最後に受け取ったリクエストを返す。
func (s *testServer) last(t *testing.T) recordedRequest {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatal("リクエストを受け取っていない")
	}
	return s.requests[len(s.requests)-1]
}

// newTestAPI はテスト用のAPIクライアントを生成するヘルパー関数。
func newTestAPI(t *testing.T, baseURL, access, refresh string) (*Client, tokenstore.Store, *countingNotifier) {
	t.Helper()

	store := tokenstore.NewMemory(tokenstore.DefaultKeys())
	if err := tokenstore.SetPair(context.Background(), store, access, refresh); err != nil {
		t.Fatalf("SetPair()でエラーが発生: %v", err)
	}
	notifier := &countingNotifier{}
	return New(httpclient.New(baseURL, store), WithNotifier(notifier)), store, notifier
}

// TestLogin はLoginを検証する。
func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("ログインに成功すると両方のトークンが保存されること", func(t *testing.T) {
		t.Parallel()

		srv, ts := newTestServer(t)
		srv.handle("POST /auth/login", http.StatusOK,
			`{"accessToken":"access-1","refreshToken":"refresh-1","user":{"id":3,"email":"kim@example.com","displayName":"Kim","role":"STUDENT"}}`)

		client, store, _ := newTestAPI(t, ts.URL, "", "")
		user, err := client.Login(context.Background(), "kim@example.com", "password")
		if err != nil {
			t.Fatalf("Login()でエラーが発生: %v", err)
		}
		if user.ID != 3 || user.Role != "STUDENT" {
			t.Errorf("user = %+v, want id=3 role=STUDENT", user)
		}

		req := srv.last(t)
		if req.Body["email"] != "kim@example.com" || req.Body["password"] != "password" {
			t.Errorf("リクエストボディ = %v", req.Body)
		}
		if req.Auth != "" {
			t.Errorf("Authorization = %q, want empty", req.Auth)
		}

		access, _ := store.Access(context.Background())
		refresh, _ := store.Refresh(context.Background())
		if access != "access-1" || refresh != "refresh-1" {
			t.Errorf("保存されたトークン = (%q, %q)", access, refresh)
		}
	})

	t.Run("認証情報が誤っている場合は401が返りトークン更新は行われないこと", func(t *testing.T) {
		t.Parallel()

		srv, ts := newTestServer(t)
		srv.handle("POST /auth/login", http.StatusUnauthorized, `{"status":401,"message":"メールアドレスまたはパスワードが正しくありません"}`)
		srv.handle("POST /auth/refresh", http.StatusOK, `{"accessToken":"unexpected"}`)

		client, store, _ := newTestAPI(t, ts.URL, "old-access", "old-refresh")
		_, err := client.Login(context.Background(), "kim@example.com", "wrong")
		if !httpclient.IsUnauthorized(err) {
			t.Fatalf("IsUnauthorized(err) = false: %v", err)
		}

		var apiErr *httpclient.APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "メールアドレスまたはパスワードが正しくありません" {
			t.Errorf("APIError = %+v", apiErr)
		}
		// 失敗したログインは既存の資格情報に影響しない
		if access, _ := store.Access(context.Background()); access != "old-access" {
			t.Errorf("Access = %q, want %q", access, "old-access")
		}
	})
}

// TestLogout はLogoutを検証する。
func TestLogout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
	}{
		{name: "サーバーが成功を返した場合に資格情報が消去されること", status: http.StatusNoContent},
		{name: "サーバーがエラーを返しても資格情報が消去されること", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, ts := newTestServer(t)
			srv.handle("POST /auth/logout", tt.status, ``)

			client, store, _ := newTestAPI(t, ts.URL, "access-1", "refresh-1")
			if err := client.Logout(context.Background()); err != nil {
				t.Fatalf("Logout()でエラーが発生: %v", err)
			}

			if got := srv.last(t).Body["refreshToken"]; got != "refresh-1" {
				t.Errorf("refreshToken = %v, want %q", got, "refresh-1")
			}
			access, _ := store.Access(context.Background())
			refresh, _ := store.Refresh(context.Background())
			if access != "" || refresh != "" {
				t.Errorf("消去後のトークン = (%q, %q), want empty", access, refresh)
			}
		})
	}

	t.Run("サーバーに接続できなくても資格情報が消去されること", func(t *testing.T) {
		t.Parallel()

		client, store, _ := newTestAPI(t, "http://127.0.0.1:1", "access-1", "refresh-1")
		if err := client.Logout(context.Background()); err != nil {
			t.Fatalf("Logout()でエラーが発生: %v", err)
		}
		if access, _ := store.Access(context.Background()); access != "" {
			t.Errorf("Access = %q, want empty", access)
		}
	})
}

// TestHealth はHealthを検証する。
func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("稼働中の場合はUPが返ること", func(t *testing.T) {
		t.Parallel()

		srv, ts := newTestServer(t)
		srv.handle("GET /api/health", http.StatusOK, `{"status":"UP","time":"2026-10-19T09:00:00Z"}`)

		client, _, _ := newTestAPI(t, ts.URL, "", "")
		if got := client.Health(context.Background()); got.Status != "UP" {
			t.Errorf("Status = %q, want %q", got.Status, "UP")
		}
	})

	t.Run("失敗した場合はDOWNが返ること", func(t *testing.T) {
		t.Parallel()

		srv, ts := newTestServer(t)
		srv.handle("GET /api/health", http.StatusServiceUnavailable, `{"message":"maintenance"}`)

		client, _, _ := newTestAPI(t, ts.URL, "", "")
		if got := client.Health(context.Background()); got.Status != HealthDown {
			t.Errorf("Status = %q, want %q", got.Status, HealthDown)
		}

		unreachable, _, _ := newTestAPI(t, "http://127.0.0.1:1", "", "")
		if got := unreachable.Health(context.Background()); got.Status != HealthDown {
			t.Errorf("接続不可時のStatus = %q, want %q", got.Status, HealthDown)
		}
	})
}

// TestMe はMeを検証する。
func TestMe(t *testing.T) {
	t.Parallel()

	srv, ts := newTestServer(t)
	srv.handle("GET /api/me", http.StatusOK, `{"id":1,"email":"prof@example.com","displayName":"Lee","role":"PROFESSOR"}`)

	client, _, _ := newTestAPI(t, ts.URL, "access-1", "refresh-1")
	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me()でエラーが発生: %v", err)
	}
	if user.DisplayName != "Lee" {
		t.Errorf("DisplayName = %q, want %q", user.DisplayName, "Lee")
	}
	if got := srv.last(t).Auth; got != "Bearer access-1" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer access-1")
	}
}

// TestListEndpoints は一覧取得APIのパスとクエリを検証する。
func TestListEndpoints(t *testing.T) {
	t.Parallel()

	srv, ts := newTestServer(t)
	srv.handle("GET /api/projects", http.StatusOK, `[{"id":1,"name":"Capstone","status":"in-progress","members":[{"id":2,"name":"Kim"}],"milestones":{"completed":1,"total":3},"nextDeadline":{"task":"中間報告","date":"2026-10-20T18:00:00"}}]`)
	srv.handle("GET /api/teams", http.StatusOK, `[{"id":1,"name":"Team A","leader":null,"members":[],"stats":{"commits":0,"meetings":2,"tasks":{"completed":1,"total":3}}}]`)
	srv.handle("GET /api/projects/1/feedback", http.StatusOK, `[{"id":9,"projectId":1,"author":"Lee","content":"Good","rating":5}]`)
	srv.handle("GET /api/projects/1/events", http.StatusOK, `[{"id":4,"projectId":1,"title":"定例","type":"MEETING"}]`)
	srv.handle("GET /api/schedules", http.StatusOK, `[{"id":"A-1","title":"中間報告","type":"deadline","status":"pending","priority":"medium"}]`)
	srv.handle("GET /api/schedules/range", http.StatusOK, `[]`)

	client, _, _ := newTestAPI(t, ts.URL, "access-1", "refresh-1")
	ctx := context.Background()

	projects, err := client.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects()でエラーが発生: %v", err)
	}
	if len(projects) != 1 || projects[0].NextDeadline == nil || projects[0].Milestones.Total != 3 {
		t.Errorf("projects = %+v", projects)
	}

	teams, err := client.ListTeams(ctx)
	if err != nil {
		t.Fatalf("ListTeams()でエラーが発生: %v", err)
	}
	if len(teams) != 1 || teams[0].Leader != nil || teams[0].Stats.Meetings != 2 {
		t.Errorf("teams = %+v", teams)
	}

	feedback, err := client.ListProjectFeedback(ctx, 1)
	if err != nil {
		t.Fatalf("ListProjectFeedback()でエラーが発生: %v", err)
	}
	if len(feedback) != 1 || feedback[0].Rating != 5 {
		t.Errorf("feedback = %+v", feedback)
	}

	events, err := client.ListProjectEvents(ctx, 1, "2026-10-01", "2026-10-31")
	if err != nil {
		t.Fatalf("ListProjectEvents()でエラーが発生: %v", err)
	}
	if len(events) != 1 || events[0].Type != EventMeeting {
		t.Errorf("events = %+v", events)
	}
	if got := srv.last(t).Query; got != "from=2026-10-01&to=2026-10-31" {
		t.Errorf("クエリ = %q", got)
	}

	schedules, err := client.ListSchedules(ctx)
	if err != nil {
		t.Fatalf("ListSchedules()でエラーが発生: %v", err)
	}
	if len(schedules) != 1 || schedules[0].ID != "A-1" {
		t.Errorf("schedules = %+v", schedules)
	}

	if _, err := client.ListSchedulesInRange(ctx, RangeQuery{From: "2026-10-18", To: "2026-10-24", ProjectID: 1, TeamID: 2, OnlyEvents: true}); err != nil {
		t.Fatalf("ListSchedulesInRange()でエラーが発生: %v", err)
	}
	if got := srv.last(t).Query; got != "from=2026-10-18&onlyEvents=true&projectId=1&teamId=2&to=2026-10-24" {
		t.Errorf("クエリ = %q", got)
	}

	if _, err := client.ListSchedulesInRange(ctx, RangeQuery{From: "2026-10-18"}); err == nil {
		t.Error("期間の終端が無い場合にエラーを返すべき")
	}
}

// TestAssignments は課題APIと変更通知を検証する。
func TestAssignments(t *testing.T) {
	t.Parallel()

	const assignment = `{"id":5,"projectId":1,"title":"最終報告","dueDate":"2026-12-01T18:00:00","status":"PENDING"}`

	srv, ts := newTestServer(t)
	srv.handle("GET /api/projects/1/assignments", http.StatusOK, "["+assignment+"]")
	srv.handle("POST /api/projects/1/assignments", http.StatusCreated, assignment)
	srv.handle("PATCH /api/projects/1/assignments/5", http.StatusOK, assignment)
	srv.handle("PATCH /api/projects/1/assignments/5/status", http.StatusOK, assignment)
	srv.handle("DELETE /api/projects/1/assignments/5", http.StatusNoContent, ``)
	srv.handle("DELETE /api/projects/1/assignments/6", http.StatusNotFound, `{"status":404,"message":"課題が見つかりません"}`)

	client, _, notifier := newTestAPI(t, ts.URL, "access-1", "refresh-1")
	ctx := context.Background()

	list, err := client.ListAssignments(ctx, 1)
	if err != nil {
		t.Fatalf("ListAssignments()でエラーが発生: %v", err)
	}
	if len(list) != 1 || list[0].Status != AssignmentPending {
		t.Errorf("list = %+v", list)
	}
	if notifier.n.Load() != 0 {
		t.Error("一覧取得で変更が通知された")
	}

	if _, err := client.CreateAssignment(ctx, 1, AssignmentInput{Title: "最終報告", DueDateISO: "2026-12-01"}); err != nil {
		t.Fatalf("CreateAssignment()でエラーが発生: %v", err)
	}
	body := srv.last(t).Body
	if body["title"] != "最終報告" || body["dueDateIso"] != "2026-12-01" {
		t.Errorf("作成リクエストボディ = %v", body)
	}
	if _, ok := body["status"]; ok {
		t.Error("未指定のstatusが送信された")
	}

	if _, err := client.UpdateAssignment(ctx, 1, 5, AssignmentInput{Title: "最終報告（改訂）"}); err != nil {
		t.Fatalf("UpdateAssignment()でエラーが発生: %v", err)
	}

	if _, err := client.ChangeAssignmentStatus(ctx, 1, 5, AssignmentCompleted); err != nil {
		t.Fatalf("ChangeAssignmentStatus()でエラーが発生: %v", err)
	}
	if got := srv.last(t).Query; got != "value=COMPLETED" {
		t.Errorf("クエリ = %q, want %q", got, "value=COMPLETED")
	}

	if err := client.DeleteAssignment(ctx, 1, 5); err != nil {
		t.Fatalf("DeleteAssignment()でエラーが発生: %v", err)
	}

	if got := notifier.n.Load(); got != 4 {
		t.Errorf("変更通知の回数 = %d, want 4", got)
	}

	err = client.DeleteAssignment(ctx, 1, 6)
	if httpclient.StatusCode(err) != http.StatusNotFound {
		t.Errorf("StatusCode(err) = %d, want %d", httpclient.StatusCode(err), http.StatusNotFound)
	}
	if got := notifier.n.Load(); got != 4 {
		t.Errorf("失敗した変更で通知された: %d", got)
	}
}

// TestEvents はイベントの作成・削除と変更通知を検証する。
func TestEvents(t *testing.T) {
	t.Parallel()

	srv, ts := newTestServer(t)
	srv.handle("POST /api/projects/1/events", http.StatusCreated,
		`{"id":9,"projectId":1,"title":"ゼミ","startAt":"2026-04-02T10:00:00","type":"MEETING"}`)
	srv.handle("PATCH /api/projects/1/events/9", http.StatusOK,
		`{"id":9,"projectId":1,"title":"ゼミ","startAt":"2026-04-02T10:00:00","type":"MEETING","location":"講堂"}`)
	srv.handle("DELETE /api/projects/1/events/9", http.StatusNoContent, ``)

	client, _, notifier := newTestAPI(t, ts.URL, "access-1", "refresh-1")
	ctx := context.Background()

	ev, err := client.CreateEvent(ctx, 1, EventInput{Title: "ゼミ", StartAt: "2026-04-02T10:00:00", Type: EventMeeting})
	if err != nil {
		t.Fatalf("CreateEvent()でエラーが発生: %v", err)
	}
	if ev.ID != 9 || ev.Type != EventMeeting {
		t.Errorf("event = %+v", ev)
	}
	body := srv.last(t).Body
	if body["title"] != "ゼミ" || body["type"] != "MEETING" {
		t.Errorf("作成リクエストボディ = %v", body)
	}
	if _, ok := body["endAt"]; ok {
		t.Error("未指定のendAtが送信された")
	}

	ev, err = client.UpdateEvent(ctx, 1, 9, EventInput{Location: "講堂"})
	if err != nil {
		t.Fatalf("UpdateEvent()でエラーが発生: %v", err)
	}
	if ev.Location != "講堂" {
		t.Errorf("event = %+v", ev)
	}
	body = srv.last(t).Body
	if len(body) != 1 || body["location"] != "講堂" {
		t.Errorf("更新リクエストボディ = %v, want locationのみ", body)
	}

	if err := client.DeleteEvent(ctx, 1, 9); err != nil {
		t.Fatalf("DeleteEvent()でエラーが発生: %v", err)
	}
	if got := notifier.n.Load(); got != 3 {
		t.Errorf("変更通知の回数 = %d, want 3", got)
	}
}

// TestLoadDashboard はダッシュボードの並行取得を検証する。
func TestLoadDashboard(t *testing.T) {
	t.Parallel()

	t.Run("3つのAPIの結果がまとめて返ること", func(t *testing.T) {
		t.Parallel()

		srv, ts := newTestServer(t)
		srv.handle("GET /api/projects/1/dashboard/summary", http.StatusOK, `{"progressPct":33,"memberCount":4,"commitsThisWeek":0,"assignments":{"open":1,"inProgress":1,"closed":1},"milestone":null}`)
		srv.handle("GET /api/projects/1/dashboard/status", http.StatusOK, `{"progressPct":33,"lastUpdate":"2026-10-19T09:00:00","actions":["次のマイルストーンの準備"]}`)
		srv.handle("GET /api/projects/1/dashboard/deadlines", http.StatusOK, `[{"title":"中間報告","dueDate":"2026-10-20T18:00:00"}]`)

		client, _, _ := newTestAPI(t, ts.URL, "access-1", "refresh-1")
		d, err := client.LoadDashboard(context.Background(), 1)
		if err != nil {
			t.Fatalf("LoadDashboard()でエラーが発生: %v", err)
		}
		if d.Summary.MemberCount != 4 || d.Summary.Milestone != nil {
			t.Errorf("Summary = %+v", d.Summary)
		}
		if len(d.Status.Actions) != 1 {
			t.Errorf("Status = %+v", d.Status)
		}
		if len(d.Deadlines) != 1 {
			t.Errorf("Deadlines = %+v", d.Deadlines)
		}

		srv.mu.Lock()
		defer srv.mu.Unlock()
		for _, r := range srv.requests {
			if r.Path == "/api/projects/1/dashboard/deadlines" && r.Query != "limit=5" {
				t.Errorf("期限一覧のクエリ = %q, want %q", r.Query, "limit=5")
			}
		}
	})

	t.Run("いずれかが失敗した場合はエラーが返ること", func(t *testing.T) {
		t.Parallel()

		srv, ts := newTestServer(t)
		srv.handle("GET /api/projects/1/dashboard/summary", http.StatusOK, `{}`)
		srv.handle("GET /api/projects/1/dashboard/status", http.StatusNotFound, `{"message":"プロジェクトが見つかりません"}`)
		srv.handle("GET /api/projects/1/dashboard/deadlines", http.StatusOK, `[]`)

		client, _, _ := newTestAPI(t, ts.URL, "access-1", "refresh-1")
		if _, err := client.LoadDashboard(context.Background(), 1); httpclient.StatusCode(err) != http.StatusNotFound {
			t.Errorf("StatusCode(err) = %d, want %d: %v", httpclient.StatusCode(err), http.StatusNotFound, err)
		}
	})

	t.Run("件数を指定して期限一覧を取得できること", func(t *testing.T) {
		t.Parallel()

		srv, ts := newTestServer(t)
		srv.handle("GET /api/projects/2/dashboard/deadlines", http.StatusOK, `[]`)

		client, _, _ := newTestAPI(t, ts.URL, "access-1", "refresh-1")
		if _, err := client.GetDashboardDeadlines(context.Background(), 2, 10); err != nil {
			t.Fatalf("GetDashboardDeadlines()でエラーが発生: %v", err)
		}
		if got := srv.last(t).Query; got != "limit=10" {
			t.Errorf("クエリ = %q, want %q", got, "limit=10")
		}
	})
}
