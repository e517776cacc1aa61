package mockapi

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/nao1215/capstone/internal/config"
	"github.com/nao1215/capstone/pkg/event"
	"github.com/nao1215/capstone/pkg/middleware"
	"github.com/nao1215/capstone/pkg/migration"
	"github.com/nao1215/capstone/pkg/schedulebus"
)

//go:embed schema/*.sql
var schema embed.FS

// Server はcapstoneプロジェクト管理APIのモックサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// db はSQLiteデータベース接続。
	db *sql.DB
	// queries はクエリ実行オブジェクト。
	queries *Queries
	// jwtSecret はアクセストークンの署名鍵。
	jwtSecret string
	// accessTTL はアクセストークンの有効期間。
	accessTTL time.Duration
	// refreshTTL はリフレッシュトークンの有効期間。
	refreshTTL time.Duration
	// now は現在時刻を返す。
	now func() time.Time
	// notifier は課題やイベントの変更を通知する。
	notifier schedulebus.Notifier
	logger   *log.Logger
}

// Option はServerの設定を変更する関数。
type Option func(*Server)

// WithNotifier は課題やイベントが変更されたときの通知先を設定する。
func WithNotifier(n schedulebus.Notifier) Option {
	return func(s *Server) {
		s.notifier = n
	}
}

// WithClock は現在時刻の取得方法を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithLogger はアクセスログの出力先を設定する。既定では標準エラー出力に書く。
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer は新しいモックAPIサーバーを生成する。
// SQLiteデータベースを開いてマイグレーションを適用し、cfg.Seedが真ならデモデータを投入する。
func NewServer(ctx context.Context, cfg *config.Server, opts ...Option) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", dsn(cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migration.Run(ctx, sqlDB, schema, "schema"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	s := &Server{
		port:       cfg.Port,
		db:         sqlDB,
		queries:    NewQueries(sqlDB),
		jwtSecret:  cfg.JWTSecret,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Seed {
		if err := Seed(ctx, sqlDB, s.now()); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("デモデータの投入に失敗: %w", err)
		}
	}

	router := gin.New()
	router.Use(middleware.Recovery(s.logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(s.logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	s.router = router
	s.setupRoutes()

	return s, nil
}

// dsn はmodernc.org/sqlite用の接続文字列を返す。
func dsn(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// Handler はHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	auth := s.router.Group("/auth")
	{
		// ログイン
		auth.POST("/login", s.handleLogin())
		// アクセストークンの更新
		auth.POST("/refresh", s.handleRefresh())
		// ログアウト
		auth.POST("/logout", s.handleLogout())
	}

	// ヘルスチェック
	s.router.GET("/api/health", s.handleHealth())

	api := s.router.Group("/api")
	api.Use(middleware.JWTAuth(s.jwtSecret))
	{
		api.GET("/me", s.handleMe())
		api.GET("/projects", s.handleListProjects())
		api.GET("/teams", s.handleListTeams())
		api.GET("/schedules", s.handleListSchedules())
		api.GET("/schedules/range", s.handleListSchedulesInRange())

		admin := api.Group("/admin", middleware.RequireRole(RoleAdmin))
		{
			admin.GET("/users", s.handleListUsers())
		}

		project := api.Group("/projects/:id")
		{
			project.GET("/feedback", s.handleListFeedback())

			project.GET("/events", s.handleListEvents())
			project.POST("/events", s.handleCreateEvent())
			project.PATCH("/events/:event_id", s.handleUpdateEvent())
			project.DELETE("/events/:event_id", s.handleDeleteEvent())

			project.GET("/assignments", s.handleListAssignments())
			project.POST("/assignments", s.handleCreateAssignment())
			project.PATCH("/assignments/:assignment_id", s.handleUpdateAssignment())
			project.PATCH("/assignments/:assignment_id/status", s.handleChangeAssignmentStatus())
			project.DELETE("/assignments/:assignment_id", s.handleDeleteAssignment())

			project.GET("/dashboard/summary", s.handleDashboardSummary())
			project.GET("/dashboard/status", s.handleDashboardStatus())
			project.GET("/dashboard/deadlines", s.handleDashboardDeadlines())
		}
	}
}

// publisher は変更内容を添えて通知できる通知先。*schedulebus.Relay が実装する。
type publisher interface {
	Publish(data event.ScheduleChangedData) error
}

// emitChanged はスケジュールの変更を通知する。
func (s *Server) emitChanged(projectID int64, reason string) {
	if p, ok := s.notifier.(publisher); ok {
		if err := p.Publish(event.ScheduleChangedData{ProjectID: projectID, Reason: reason}); err != nil {
			s.logger.Printf("[MockAPI] スケジュール変更の送信に失敗: %v", err)
		}
		return
	}
	if s.notifier != nil {
		s.notifier.EmitChanged()
	}
}

// internalError は500を返してエラーをログに出力する。
func (s *Server) internalError(c *gin.Context, message string, err error) {
	s.logger.Printf("[MockAPI] %s: %v request_id=%s", message, err, middleware.GetRequestID(c))
	middleware.AbortWithError(c, http.StatusInternalServerError, message)
}
