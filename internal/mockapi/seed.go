package mockapi

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DemoPassword はデモユーザー共通のパスワード。
const DemoPassword = "capstone123"

// デモユーザーのメールアドレス。
const (
	DemoStudentEmail   = "student@capstone.example.com"
	DemoProfessorEmail = "professor@capstone.example.com"
	DemoAdminEmail     = "admin@capstone.example.com"
)

// ユーザーの役割。
const (
	RoleStudent   = "STUDENT"
	RoleProfessor = "PROFESSOR"
	RoleAdmin     = "ADMIN"
)

type seedUser struct {
	email string
	name  string
	role  string
}

var seedUsers = []seedUser{
	{DemoStudentEmail, "山田 太郎", RoleStudent},
	{"hanako@capstone.example.com", "佐藤 花子", RoleStudent},
	{DemoProfessorEmail, "鈴木 一郎", RoleProfessor},
	{DemoAdminEmail, "管理者", RoleAdmin},
}

// Seed は空のデータベースにデモデータを投入する。ユーザーが既に存在する場合は何もしない。
// 課題とイベントの日時はnowを基準に決める。
func Seed(ctx context.Context, db *sql.DB, now time.Time) error {
	n, err := NewQueries(db).CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("ユーザー数の取得に失敗: %w", err)
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	q := NewQueries(tx)
	ids := make([]int64, 0, len(seedUsers))
	for _, u := range seedUsers {
		id, err := q.CreateUser(ctx, CreateUserParams{
			Email:        u.email,
			DisplayName:  u.name,
			PasswordHash: string(hash),
			Role:         u.role,
		})
		if err != nil {
			return fmt.Errorf("ユーザー %s の作成に失敗: %w", u.email, err)
		}
		ids = append(ids, id)
	}

	teamA, err := q.CreateTeam(ctx, "チームA", "スマートキャンパスアプリを開発するチーム")
	if err != nil {
		return fmt.Errorf("チームの作成に失敗: %w", err)
	}
	teamB, err := q.CreateTeam(ctx, "チームB", "")
	if err != nil {
		return fmt.Errorf("チームの作成に失敗: %w", err)
	}
	members := []struct {
		team   int64
		user   int64
		role   string
		status string
	}{
		{teamA, ids[0], "leader", "active"},
		{teamA, ids[1], "member", "active"},
		{teamB, ids[1], "member", "inactive"},
	}
	for _, m := range members {
		if err := q.AddTeamMember(ctx, m.team, m.user, m.role, m.status); err != nil {
			return fmt.Errorf("チームメンバーの追加に失敗: %w", err)
		}
	}

	project, err := q.CreateProject(ctx, teamA, "スマートキャンパスアプリ", "ACTIVE")
	if err != nil {
		return fmt.Errorf("プロジェクトの作成に失敗: %w", err)
	}
	if _, err := q.CreateProject(ctx, 0, "研究室ポータル", "PLANNING"); err != nil {
		return fmt.Errorf("プロジェクトの作成に失敗: %w", err)
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	at := func(days, hour, minute int) sql.NullString {
		t := day.AddDate(0, 0, days).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
		return sql.NullString{String: t.Format(localDateTime), Valid: true}
	}

	assignments := []CreateAssignmentParams{
		{project, "要件定義書の提出", at(-7, 23, 59), "COMPLETED"},
		{project, "中間発表資料の作成", at(3, 23, 59), "ONGOING"},
		{project, "最終報告書の提出", at(14, 23, 59), "PENDING"},
		{project, "デモ動画の撮影", sql.NullString{}, "PENDING"},
	}
	for _, a := range assignments {
		if _, err := q.CreateAssignment(ctx, a); err != nil {
			return fmt.Errorf("課題の作成に失敗: %w", err)
		}
	}

	events := []Event{
		{ProjectID: project, Title: "定例ミーティング", StartAt: at(1, 10, 0), EndAt: at(1, 11, 0), Type: "MEETING", Location: "会議室A"},
		{ProjectID: project, Title: "中間発表", StartAt: at(3, 13, 0), EndAt: at(3, 15, 0), Type: "PRESENTATION", Location: "講堂"},
		{ProjectID: project, Title: "振り返り", StartAt: at(-2, 16, 0), Type: "ETC"},
	}
	for _, e := range events {
		if _, err := q.CreateEvent(ctx, e); err != nil {
			return fmt.Errorf("イベントの作成に失敗: %w", err)
		}
	}

	feedback := []struct {
		author  string
		content string
		rating  int
	}{
		{"鈴木 一郎", "要件定義がよくまとまっています。", 4},
		{"鈴木 一郎", "中間発表ではデモを中心に構成してください。", 3},
	}
	for _, f := range feedback {
		if _, err := q.CreateFeedback(ctx, project, f.author, f.content, f.rating); err != nil {
			return fmt.Errorf("フィードバックの作成に失敗: %w", err)
		}
	}

	return tx.Commit()
}
