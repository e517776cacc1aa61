package main

import (
	"context"
	"errors"
	"flag"
	"strings"
	"time"

	"github.com/nao1215/capstone/internal/api"
)

// commands はサブコマンドの一覧。
var commands = map[string]command{
	"login":             {"メールアドレスとパスワードでログインする", runLogin},
	"logout":            {"ログアウトして資格情報を消去する", runLogout},
	"refresh":           {"アクセストークンを明示的に更新する", runRefresh},
	"me":                {"ログイン中のユーザーを表示する", runMe},
	"health":            {"サーバーの稼働状況を表示する", runHealth},
	"projects":          {"プロジェクト一覧を表示する", runProjects},
	"teams":             {"チーム一覧を表示する", runTeams},
	"feedback":          {"プロジェクトのフィードバックを表示する", runFeedback},
	"events":            {"プロジェクトのイベントを表示する", runEvents},
	"event-add":         {"イベントを作成する", runEventAdd},
	"event-update":      {"イベントを更新する", runEventUpdate},
	"event-delete":      {"イベントを削除する", runEventDelete},
	"schedules":         {"スケジュールを表示する（-from/-to で期間指定）", runSchedules},
	"week":              {"指定日を含む週のスケジュールを表示する", runWeek},
	"month":             {"指定日を含む月のカレンダーのスケジュールを表示する", runMonth},
	"assignments":       {"プロジェクトの課題を表示する", runAssignments},
	"assignment-add":    {"課題を作成する", runAssignmentAdd},
	"assignment-update": {"課題を更新する", runAssignmentUpdate},
	"assignment-status": {"課題の状態を変更する", runAssignmentStatus},
	"assignment-delete": {"課題を削除する", runAssignmentDelete},
	"dashboard":         {"プロジェクトのダッシュボードを表示する", runDashboard},
	"watch":             {"スケジュールの変更を監視する（NATSが必要）", runWatch},
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("login")
	email := fs.String("email", "", "メールアドレス")
	password := fs.String("password", "", "パスワード")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("-email と -password は必須です")
	}

	user, err := a.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	return a.printJSON(user)
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	return a.client.Logout(ctx)
}

func runRefresh(ctx context.Context, a *app, _ []string) error {
	return a.client.Refresh(ctx)
}

func runMe(ctx context.Context, a *app, _ []string) error {
	user, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(user)
}

func runHealth(ctx context.Context, a *app, _ []string) error {
	return a.printJSON(a.client.Health(ctx))
}

func runProjects(ctx context.Context, a *app, _ []string) error {
	projects, err := a.client.ListProjects(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(projects)
}

func runTeams(ctx context.Context, a *app, _ []string) error {
	teams, err := a.client.ListTeams(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(teams)
}

func runFeedback(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("feedback")
	project := fs.Int64("project", 0, "プロジェクトID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireProject(*project); err != nil {
		return err
	}

	items, err := a.client.ListProjectFeedback(ctx, *project)
	if err != nil {
		return err
	}
	return a.printJSON(items)
}

func runEvents(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("events")
	project := fs.Int64("project", 0, "プロジェクトID")
	from := fs.String("from", "", "開始日（2006-01-02）")
	to := fs.String("to", "", "終了日（2006-01-02）")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireProject(*project); err != nil {
		return err
	}

	events, err := a.client.ListProjectEvents(ctx, *project, *from, *to)
	if err != nil {
		return err
	}
	return a.printJSON(events)
}

func runEventAdd(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("event-add")
	project := fs.Int64("project", 0, "プロジェクトID")
	var in api.EventInput
	fs.StringVar(&in.Title, "title", "", "タイトル")
	fs.StringVar(&in.StartAt, "start", "", "開始日時（2006-01-02T15:04:05 または 2006-01-02）")
	fs.StringVar(&in.EndAt, "end", "", "終了日時")
	fs.StringVar(&in.Location, "location", "", "場所")
	typ := fs.String("type", "", "種別（MEETING, DEADLINE, PRESENTATION, ETC）")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireProject(*project); err != nil {
		return err
	}
	if in.Title == "" {
		return errors.New("-title は必須です")
	}
	in.Type = api.EventType(*typ)

	ev, err := a.client.CreateEvent(ctx, *project, in)
	if err != nil {
		return err
	}
	return a.printJSON(ev)
}

func runEventUpdate(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("event-update")
	project := fs.Int64("project", 0, "プロジェクトID")
	id := fs.Int64("id", 0, "イベントID")
	var in api.EventInput
	fs.StringVar(&in.Title, "title", "", "タイトル")
	fs.StringVar(&in.StartAt, "start", "", "開始日時（2006-01-02T15:04:05 または 2006-01-02）")
	fs.StringVar(&in.EndAt, "end", "", "終了日時")
	fs.StringVar(&in.Location, "location", "", "場所")
	typ := fs.String("type", "", "種別（MEETING, DEADLINE, PRESENTATION, ETC）")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireProject(*project); err != nil {
		return err
	}
	in.Type = api.EventType(strings.ToUpper(*typ))

	ev, err := a.client.UpdateEvent(ctx, *project, *id, in)
	if err != nil {
		return err
	}
	return a.printJSON(ev)
}

func runEventDelete(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("event-delete")
	project := fs.Int64("project", 0, "プロジェクトID")
	id := fs.Int64("id", 0, "イベントID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireProject(*project); err != nil {
		return err
	}
	return a.client.DeleteEvent(ctx, *project, *id)
}

func runSchedules(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("schedules")
	var q api.RangeQuery
	fs.StringVar(&q.From, "from", "", "開始日（2006-01-02）")
	fs.StringVar(&q.To, "to", "", "終了日（2006-01-02）")
	fs.Int64Var(&q.ProjectID, "project", 0, "プロジェクトID")
	fs.Int64Var(&q.TeamID, "team", 0, "チームID")
	fs.BoolVar(&q.OnlyEvents, "only-events", false, "イベントだけを表示する")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var items []api.Schedule
	var err error
	if q.From == "" && q.To == "" {
		items, err = a.client.ListSchedules(ctx)
	} else {
		items, err = a.client.ListSchedulesInRange(ctx, q)
	}
	if err != nil {
		return err
	}
	return a.printJSON(items)
}

// calendarArgs はweekとmonthに共通のフラグを解釈する。
func calendarArgs(a *app, name string, args []string) (time.Time, api.RangeQuery, error) {
	fs := a.newFlagSet(name)
	date := fs.String("date", "", "基準日（2006-01-02）。省略時は今日")
	var q api.RangeQuery
	fs.Int64Var(&q.ProjectID, "project", 0, "プロジェクトID")
	fs.Int64Var(&q.TeamID, "team", 0, "チームID")
	fs.BoolVar(&q.OnlyEvents, "only-events", false, "イベントだけを表示する")
	if err := fs.Parse(args); err != nil {
		return time.Time{}, q, err
	}

	day := time.Now()
	if *date != "" {
		t, err := time.ParseInLocation(api.DateLayout, *date, time.Local)
		if err != nil {
			return time.Time{}, q, errors.New("-date は2006-01-02形式で指定してください")
		}
		day = t
	}
	return day, q, nil
}

func runWeek(ctx context.Context, a *app, args []string) error {
	day, q, err := calendarArgs(a, "week", args)
	if err != nil {
		return err
	}
	r := api.WeekRange(day)
	q.From, q.To = r.From, r.To

	items, err := a.client.ListSchedulesInRange(ctx, q)
	if err != nil {
		return err
	}
	return a.printJSON(items)
}

func runMonth(ctx context.Context, a *app, args []string) error {
	day, q, err := calendarArgs(a, "month", args)
	if err != nil {
		return err
	}
	r := api.MonthGridRange(day)
	q.From, q.To = r.From, r.To

	items, err := a.client.ListSchedulesInRange(ctx, q)
	if err != nil {
		return err
	}
	return a.printJSON(items)
}

func runAssignments(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("assignments")
	project := fs.Int64("project", 0, "プロジェクトID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireProject(*project); err != nil {
		return err
	}

	items, err := a.client.ListAssignments(ctx, *project)
	if err != nil {
		return err
	}
	return a.printJSON(items)
}

// assignmentInputFlags は課題の作成・更新に共通のフラグを登録する。
func assignmentInputFlags(a *app, name string) (*flag.FlagSet, *api.AssignmentInput, *string) {
	fs := a.newFlagSet(name)
	in := &api.AssignmentInput{}
	fs.StringVar(&in.Title, "title", "", "タイトル")
	fs.StringVar(&in.DueDateISO, "due", "", "期限（2006-01-02T15:04:05 または 2006-01-02）")
	status := fs.String("status", "", "状態（PENDING, ONGOING, COMPLETED）")
	return fs, in, status
}

func runAssignmentAdd(ctx context.Context, a *app, args []string) error {
	fs, in, status := assignmentInputFlags(a, "assignment-add")
	project := fs.Int64("project", 0, "プロジェクトID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireProject(*project); err != nil {
		return err
	}
	if in.Title == "" {
		return errors.New("-title は必須です")
	}
	in.Status = parseStatus(*status)

	created, err := a.client.CreateAssignment(ctx, *project, *in)
	if err != nil {
		return err
	}
	return a.printJSON(created)
}

func runAssignmentUpdate(ctx context.Context, a *app, args []string) error {
	fs, in, status := assignmentInputFlags(a, "assignment-update")
	project := fs.Int64("project", 0, "プロジェクトID")
	id := fs.Int64("id", 0, "課題ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireProject(*project); err != nil {
		return err
	}
	in.Status = parseStatus(*status)

	updated, err := a.client.UpdateAssignment(ctx, *project, *id, *in)
	if err != nil {
		return err
	}
	return a.printJSON(updated)
}

func runAssignmentStatus(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("assignment-status")
	project := fs.Int64("project", 0, "プロジェクトID")
	id := fs.Int64("id", 0, "課題ID")
	value := fs.String("value", "", "状態（PENDING, ONGOING, COMPLETED）")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireProject(*project); err != nil {
		return err
	}
	if *value == "" {
		return errors.New("-value は必須です")
	}

	updated, err := a.client.ChangeAssignmentStatus(ctx, *project, *id, parseStatus(*value))
	if err != nil {
		return err
	}
	return a.printJSON(updated)
}

func runAssignmentDelete(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("assignment-delete")
	project := fs.Int64("project", 0, "プロジェクトID")
	id := fs.Int64("id", 0, "課題ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireProject(*project); err != nil {
		return err
	}
	return a.client.DeleteAssignment(ctx, *project, *id)
}

func runDashboard(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("dashboard")
	project := fs.Int64("project", 0, "プロジェクトID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireProject(*project); err != nil {
		return err
	}

	d, err := a.client.LoadDashboard(ctx, *project)
	if err != nil {
		return err
	}
	return a.printJSON(d)
}

// runWatch はスケジュールの変更を受け取るたびに今週のスケジュールを出力する。
// Ctrl-Cで終了する。
func runWatch(ctx context.Context, a *app, args []string) error {
	if a.cfg.NATS.URL == "" {
		return errors.New("CAPSTONE_NATS_URL が設定されていません")
	}
	day, q, err := calendarArgs(a, "watch", args)
	if err != nil {
		return err
	}
	r := api.WeekRange(day)
	q.From, q.To = r.From, r.To

	changed := make(chan struct{}, 1)
	unsubscribe := a.bus.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	a.logger.Printf("スケジュールの変更を監視しています: %s〜%s", q.From, q.To)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			items, err := a.client.ListSchedulesInRange(ctx, q)
			if err != nil {
				return err
			}
			if err := a.printJSON(items); err != nil {
				return err
			}
		}
	}
}
