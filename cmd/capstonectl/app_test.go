package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/capstone/internal/api"
	"github.com/nao1215/capstone/internal/config"
	"github.com/nao1215/capstone/internal/mockapi"
)

// setupCLI はモックAPIサーバーを起動し、CLIがそのサーバーとファイルストアを使うよう環境変数を設定する。
func setupCLI(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	s, err := mockapi.NewServer(context.Background(), &config.Server{
		JWTSecret:       "cli-secret",
		DBPath:          filepath.Join(dir, "mockapi.db"),
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Seed:            true,
	}, mockapi.WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		t.Fatalf("サーバーの生成に失敗: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Close()
	})

	t.Setenv("CAPSTONE_BASE_URL", ts.URL)
	t.Setenv("CAPSTONE_STORE_BACKEND", "file")
	t.Setenv("CAPSTONE_STORE_FILE", filepath.Join(dir, "credentials.json"))
	t.Setenv("CAPSTONE_NATS_URL", "")
}

// runCLI はコマンドを実行し、終了コードと標準出力を返す。
func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	if code != 0 {
		t.Logf("stderr: %s", stderr.String())
	}
	return code, stdout.String()
}

func TestRunUsage(t *testing.T) {
	setupCLI(t)

	if code, _ := runCLI(t); code != 2 {
		t.Errorf("引数なしの終了コード = %d, want 2", code)
	}
	if code, _ := runCLI(t, "unknown"); code != 2 {
		t.Errorf("不明なコマンドの終了コード = %d, want 2", code)
	}
	if code, _ := runCLI(t, "login"); code != 1 {
		t.Errorf("-emailなしのloginの終了コード = %d, want 1", code)
	}
	if code, _ := runCLI(t, "feedback"); code != 1 {
		t.Errorf("-projectなしのfeedbackの終了コード = %d, want 1", code)
	}
}

func TestRunSession(t *testing.T) {
	setupCLI(t)

	t.Run("ログイン前はセッション終了として扱う", func(t *testing.T) {
		if code, _ := runCLI(t, "me"); code != 3 {
			t.Errorf("終了コード = %d, want 3", code)
		}
	})

	t.Run("ログインすると資格情報がファイルに保存され次のコマンドで使われる", func(t *testing.T) {
		code, out := runCLI(t, "login", "-email", mockapi.DemoStudentEmail, "-password", mockapi.DemoPassword)
		if code != 0 {
			t.Fatalf("loginの終了コード = %d, want 0", code)
		}
		var user api.User
		if err := json.Unmarshal([]byte(out), &user); err != nil {
			t.Fatalf("出力のデコードに失敗: %v: %s", err, out)
		}
		if user.Email != mockapi.DemoStudentEmail {
			t.Errorf("Email = %q, want %q", user.Email, mockapi.DemoStudentEmail)
		}

		code, out = runCLI(t, "me")
		if code != 0 {
			t.Fatalf("meの終了コード = %d, want 0", code)
		}
		if !strings.Contains(out, "山田 太郎") {
			t.Errorf("meの出力にユーザー名がありません: %s", out)
		}
	})

	t.Run("プロジェクトと課題を操作できる", func(t *testing.T) {
		code, out := runCLI(t, "projects")
		if code != 0 {
			t.Fatalf("projectsの終了コード = %d, want 0", code)
		}
		var projects []api.Project
		if err := json.Unmarshal([]byte(out), &projects); err != nil {
			t.Fatalf("出力のデコードに失敗: %v: %s", err, out)
		}
		if len(projects) != 2 {
			t.Fatalf("len(projects) = %d, want 2", len(projects))
		}

		code, out = runCLI(t, "assignment-add", "-project", "1", "-title", "ポスターの作成", "-due", "2026-12-01")
		if code != 0 {
			t.Fatalf("assignment-addの終了コード = %d, want 0", code)
		}
		var created api.Assignment
		if err := json.Unmarshal([]byte(out), &created); err != nil {
			t.Fatalf("出力のデコードに失敗: %v: %s", err, out)
		}
		if created.Status != "PENDING" {
			t.Errorf("Status = %q, want PENDING", created.Status)
		}

		code, out = runCLI(t, "assignment-status", "-project", "1", "-id", "5", "-value", "completed")
		if code != 0 {
			t.Fatalf("assignment-statusの終了コード = %d, want 0", code)
		}
		if !strings.Contains(out, "COMPLETED") {
			t.Errorf("状態が更新されていません: %s", out)
		}

		if code, _ := runCLI(t, "assignment-delete", "-project", "1", "-id", "5"); code != 0 {
			t.Errorf("assignment-deleteの終了コード = %d, want 0", code)
		}
		if code, _ := runCLI(t, "assignment-delete", "-project", "1", "-id", "5"); code != 1 {
			t.Errorf("削除済み課題のassignment-deleteの終了コード = %d, want 1", code)
		}
	})

	t.Run("イベントを更新できる", func(t *testing.T) {
		code, out := runCLI(t, "event-update", "-project", "1", "-id", "1", "-location", "オンライン", "-type", "presentation")
		if code != 0 {
			t.Fatalf("event-updateの終了コード = %d, want 0", code)
		}
		var ev api.Event
		if err := json.Unmarshal([]byte(out), &ev); err != nil {
			t.Fatalf("出力のデコードに失敗: %v: %s", err, out)
		}
		if ev.Location != "オンライン" || ev.Type != api.EventPresentation || ev.Title != "定例ミーティング" {
			t.Errorf("更新したイベント = %+v", ev)
		}
	})

	t.Run("期間のスケジュールを取得できる", func(t *testing.T) {
		code, out := runCLI(t, "schedules", "-from", "2000-01-01", "-to", "2100-12-31")
		if code != 0 {
			t.Fatalf("schedulesの終了コード = %d, want 0", code)
		}
		var items []api.Schedule
		if err := json.Unmarshal([]byte(out), &items); err != nil {
			t.Fatalf("出力のデコードに失敗: %v: %s", err, out)
		}
		if len(items) == 0 {
			t.Error("スケジュールが空です")
		}
	})

	t.Run("明示的に更新できる", func(t *testing.T) {
		if code, _ := runCLI(t, "refresh"); code != 0 {
			t.Errorf("refreshの終了コード = %d, want 0", code)
		}
		if code, _ := runCLI(t, "me"); code != 0 {
			t.Errorf("更新後のmeの終了コード = %d, want 0", code)
		}
	})

	t.Run("ログアウト後はセッション終了になる", func(t *testing.T) {
		if code, _ := runCLI(t, "logout"); code != 0 {
			t.Fatalf("logoutの終了コード = %d, want 0", code)
		}
		if code, _ := runCLI(t, "me"); code != 3 {
			t.Errorf("ログアウト後のmeの終了コード = %d, want 3", code)
		}
	})
}
