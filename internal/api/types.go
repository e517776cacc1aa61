package api

// User はログイン中のユーザー。
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	// Role はSTUDENT、PROFESSOR、ADMINのいずれか。
	Role string `json:"role"`
}

// LoginResponse はログインAPIのレスポンス。
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Health はヘルスチェックの結果。
type Health struct {
	// Status はUPまたはDOWN。
	Status string `json:"status"`
	// Time はサーバー時刻。DOWNの場合は空。
	Time string `json:"time,omitempty"`
}

// HealthDown はヘルスチェックに失敗したことを表すステータス。
const HealthDown = "DOWN"

// ProjectStatus はプロジェクトの進行状態。
type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectReview     ProjectStatus = "review"
	ProjectCompleted  ProjectStatus = "completed"
)

// Project はプロジェクト一覧の1件。
type Project struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Status       ProjectStatus `json:"status"`
	Team         string        `json:"team"`
	LastUpdate   string        `json:"lastUpdate"`
	Progress     int           `json:"progress"`
	Members      []Member      `json:"members"`
	Milestones   Milestones    `json:"milestones"`
	NextDeadline *NextDeadline `json:"nextDeadline"`
}

// Member はプロジェクトに参加するメンバー。
type Member struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Milestones は課題の完了数と総数。
type Milestones struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// NextDeadline は次に期限を迎える課題。
type NextDeadline struct {
	Task string `json:"task"`
	Date string `json:"date"`
}

// Team はチーム一覧の1件。
type Team struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Project      string       `json:"project"`
	Description  string       `json:"description,omitempty"`
	Leader       *TeamLeader  `json:"leader"`
	Members      []TeamMember `json:"members"`
	Stats        TeamStats    `json:"stats"`
	CreatedAt    string       `json:"createdAt,omitempty"`
	LastActivity string       `json:"lastActivity,omitempty"`
}

// TeamLeader はチームリーダー。
type TeamLeader struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TeamMember はチームの構成員。
type TeamMember struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	// Role はleaderまたはmember。
	Role string `json:"role"`
	// Status はactiveまたはinactive。
	Status string `json:"status"`
}

// TeamStats はチームの活動統計。
type TeamStats struct {
	Commits  int        `json:"commits"`
	Meetings int        `json:"meetings"`
	Tasks    Milestones `json:"tasks"`
}

// Feedback はプロジェクトへのフィードバック。
type Feedback struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"projectId"`
	Author    string `json:"author,omitempty"`
	Content   string `json:"content,omitempty"`
	Rating    int    `json:"rating,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// EventType はイベントの種類。
type EventType string

const (
	EventMeeting      EventType = "MEETING"
	EventDeadline     EventType = "DEADLINE"
	EventPresentation EventType = "PRESENTATION"
	EventEtc          EventType = "ETC"
)

// Event はプロジェクトのイベント。
type Event struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"projectId"`
	Title     string    `json:"title"`
	StartAt   string    `json:"startAt,omitempty"`
	EndAt     string    `json:"endAt,omitempty"`
	Type      EventType `json:"type,omitempty"`
	Location  string    `json:"location,omitempty"`
}

// Schedule はカレンダーに表示する予定。課題（A-<id>）とイベント（E-<id>）を統合したもの。
type Schedule struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	Date         string `json:"date,omitempty"`
	Time         string `json:"time,omitempty"`
	EndTime      string `json:"endTime,omitempty"`
	Assignee     string `json:"assignee,omitempty"`
	Location     string `json:"location,omitempty"`
	ProjectTitle string `json:"projectTitle,omitempty"`
}

// AssignmentStatus は課題の状態。
type AssignmentStatus string

const (
	AssignmentCompleted AssignmentStatus = "COMPLETED"
	AssignmentOngoing   AssignmentStatus = "ONGOING"
	AssignmentPending   AssignmentStatus = "PENDING"
)

// Assignment はプロジェクトの課題。
type Assignment struct {
	ID        int64            `json:"id"`
	ProjectID int64            `json:"projectId"`
	Title     string           `json:"title"`
	DueDate   string           `json:"dueDate"`
	Status    AssignmentStatus `json:"status"`
}

// AssignmentInput は課題の作成・更新内容。更新では空のフィールドを変更しない。
type AssignmentInput struct {
	Title string `json:"title,omitempty"`
	// DueDateISO は "2006-01-02" または "2006-01-02T15:04:05" 形式の期限。
	DueDateISO string           `json:"dueDateIso,omitempty"`
	Status     AssignmentStatus `json:"status,omitempty"`
}

// DashboardSummary はプロジェクトダッシュボードの集計。
type DashboardSummary struct {
	ProgressPct     int                 `json:"progressPct"`
	MemberCount     int                 `json:"memberCount"`
	CommitsThisWeek int                 `json:"commitsThisWeek"`
	Assignments     AssignmentCounts    `json:"assignments"`
	Milestone       *DashboardMilestone `json:"milestone"`
}

// AssignmentCounts は状態別の課題数。
type AssignmentCounts struct {
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Closed     int `json:"closed"`
}

// DashboardMilestone は次のマイルストーン。
type DashboardMilestone struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

// DashboardStatus はプロジェクトの進捗状況と推奨アクション。
type DashboardStatus struct {
	ProgressPct int      `json:"progressPct"`
	LastUpdate  string   `json:"lastUpdate"`
	Actions     []string `json:"actions"`
}

// DeadlineItem は期限が近い課題。
type DeadlineItem struct {
	Title   string `json:"title"`
	DueDate string `json:"dueDate"`
}

// Dashboard はダッシュボード画面に必要なデータ一式。
type Dashboard struct {
	Summary   *DashboardSummary
	Status    *DashboardStatus
	Deadlines []DeadlineItem
}
