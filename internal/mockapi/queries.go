package mockapi

import (
	"context"
	"database/sql"
)

// DBTX は *sql.DB と *sql.Tx の共通インターフェース。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries はモックAPIのクエリ実行オブジェクト。
type Queries struct {
	db DBTX
}

// NewQueries は新しいQueriesを生成する。
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx はトランザクション内でクエリを実行するQueriesを返す。
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// User はusersテーブルの行。
type User struct {
	ID           int64
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    string
}

// RefreshToken はrefresh_tokensテーブルの行。
type RefreshToken struct {
	Token     string
	UserID    int64
	ExpiresAt int64
	Revoked   bool
}

// Team はteamsテーブルの行。
type Team struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   string
}

// TeamMember はチームメンバーとユーザー情報を結合した行。
type TeamMember struct {
	TeamID int64
	UserID int64
	Name   string
	Email  string
	Role   string
	Status string
}

// Project はprojectsテーブルの行とチーム名。
type Project struct {
	ID        int64
	TeamID    sql.NullInt64
	TeamName  sql.NullString
	Title     string
	Status    string
	CreatedAt string
	UpdatedAt sql.NullString
}

// Assignment はassignmentsテーブルの行。
type Assignment struct {
	ID        int64
	ProjectID int64
	Title     string
	DueDate   sql.NullString
	Status    string
}

// Event はeventsテーブルの行。
type Event struct {
	ID        int64
	ProjectID int64
	Title     string
	StartAt   sql.NullString
	EndAt     sql.NullString
	Type      string
	Location  string
}

// Feedback はfeedbackテーブルの行。
type Feedback struct {
	ID        int64
	ProjectID int64
	Author    string
	Content   string
	Rating    int
	CreatedAt string
}

const countUsers = `SELECT COUNT(*) FROM users`

// CountUsers はユーザー数を返す。
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&n)
	return n, err
}

const createUser = `INSERT INTO users (email, display_name, password_hash, role) VALUES (?, ?, ?, ?)`

// CreateUserParams はCreateUserの引数。
type CreateUserParams struct {
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
}

// CreateUser はユーザーを作成してIDを返す。
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createUser, arg.Email, arg.DisplayName, arg.PasswordHash, arg.Role)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const selectUser = `SELECT id, email, display_name, password_hash, role, created_at FROM users`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

// GetUser はIDでユーザーを取得する。
func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id))
}

// GetUserByEmail はメールアドレスでユーザーを取得する。
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, selectUser+` WHERE email = ?`, email))
}

// ListUsers は全ユーザーをID順に取得する。
func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, selectUser+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

const createRefreshToken = `INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES (?, ?, ?)`

// CreateRefreshToken はリフレッシュトークンを保存する。
func (q *Queries) CreateRefreshToken(ctx context.Context, token string, userID, expiresAt int64) error {
	_, err := q.db.ExecContext(ctx, createRefreshToken, token, userID, expiresAt)
	return err
}

const getRefreshToken = `SELECT token, user_id, expires_at, revoked FROM refresh_tokens WHERE token = ?`

// GetRefreshToken はリフレッシュトークンを取得する。
func (q *Queries) GetRefreshToken(ctx context.Context, token string) (RefreshToken, error) {
	var t RefreshToken
	var revoked int
	err := q.db.QueryRowContext(ctx, getRefreshToken, token).Scan(&t.Token, &t.UserID, &t.ExpiresAt, &revoked)
	t.Revoked = revoked != 0
	return t, err
}

const revokeRefreshToken = `UPDATE refresh_tokens SET revoked = 1 WHERE token = ? AND revoked = 0`

// RevokeRefreshToken はリフレッシュトークンを失効させ、更新した行数を返す。
func (q *Queries) RevokeRefreshToken(ctx context.Context, token string) (int64, error) {
	res, err := q.db.ExecContext(ctx, revokeRefreshToken, token)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createTeam = `INSERT INTO teams (name, description) VALUES (?, ?)`

// CreateTeam はチームを作成してIDを返す。
func (q *Queries) CreateTeam(ctx context.Context, name, description string) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTeam, name, description)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const addTeamMember = `INSERT INTO team_members (team_id, user_id, role, status) VALUES (?, ?, ?, ?)`

// AddTeamMember はチームにメンバーを追加する。
func (q *Queries) AddTeamMember(ctx context.Context, teamID, userID int64, role, status string) error {
	_, err := q.db.ExecContext(ctx, addTeamMember, teamID, userID, role, status)
	return err
}

const listTeams = `SELECT id, name, description, created_at FROM teams ORDER BY id`

// ListTeams はチームをID順に取得する。
func (q *Queries) ListTeams(ctx context.Context) ([]Team, error) {
	rows, err := q.db.QueryContext(ctx, listTeams)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const listTeamMembers = `
SELECT m.team_id, u.id, u.display_name, u.email, m.role, m.status
FROM team_members m
JOIN users u ON u.id = m.user_id
WHERE m.team_id = ?
ORDER BY CASE m.role WHEN 'leader' THEN 0 ELSE 1 END, u.id`

// ListTeamMembers はチームのメンバーをリーダー優先で取得する。
func (q *Queries) ListTeamMembers(ctx context.Context, teamID int64) ([]TeamMember, error) {
	rows, err := q.db.QueryContext(ctx, listTeamMembers, teamID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []TeamMember
	for rows.Next() {
		var m TeamMember
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Name, &m.Email, &m.Role, &m.Status); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const createProject = `INSERT INTO projects (team_id, title, status) VALUES (?, ?, ?)`

// CreateProject はプロジェクトを作成してIDを返す。teamIDが0の場合はチーム未割り当てとする。
func (q *Queries) CreateProject(ctx context.Context, teamID int64, title, status string) (int64, error) {
	var team sql.NullInt64
	if teamID != 0 {
		team = sql.NullInt64{Int64: teamID, Valid: true}
	}
	res, err := q.db.ExecContext(ctx, createProject, team, title, status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const selectProject = `
SELECT p.id, p.team_id, t.name, p.title, p.status, p.created_at, p.updated_at
FROM projects p
LEFT JOIN teams t ON t.id = p.team_id`

func scanProject(scan func(dest ...any) error) (Project, error) {
	var p Project
	err := scan(&p.ID, &p.TeamID, &p.TeamName, &p.Title, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProjects はプロジェクトをID順に取得する。
func (q *Queries) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := q.db.QueryContext(ctx, selectProject+` ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// GetProject はIDでプロジェクトを取得する。
func (q *Queries) GetProject(ctx context.Context, id int64) (Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, selectProject+` WHERE p.id = ?`, id).Scan)
}

// FirstProject は最も古いプロジェクトを取得する。
func (q *Queries) FirstProject(ctx context.Context) (Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, selectProject+` ORDER BY p.id LIMIT 1`).Scan)
}

// FirstProjectByTeam はチームの最も古いプロジェクトを取得する。
func (q *Queries) FirstProjectByTeam(ctx context.Context, teamID int64) (Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, selectProject+` WHERE p.team_id = ? ORDER BY p.id LIMIT 1`, teamID).Scan)
}

const touchProject = `UPDATE projects SET updated_at = ? WHERE id = ?`

// TouchProject はプロジェクトの更新日時を設定する。
func (q *Queries) TouchProject(ctx context.Context, id int64, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, touchProject, updatedAt, id)
	return err
}

const selectAssignment = `SELECT id, project_id, title, due_date, status FROM assignments`

func scanAssignment(scan func(dest ...any) error) (Assignment, error) {
	var a Assignment
	err := scan(&a.ID, &a.ProjectID, &a.Title, &a.DueDate, &a.Status)
	return a, err
}

// ListAssignmentsByProject はプロジェクトの課題を期限の昇順で取得する。期限なしは末尾に並ぶ。
func (q *Queries) ListAssignmentsByProject(ctx context.Context, projectID int64) ([]Assignment, error) {
	rows, err := q.db.QueryContext(ctx,
		selectAssignment+` WHERE project_id = ? ORDER BY due_date IS NULL, due_date, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// GetAssignment はプロジェクトに属する課題を取得する。
func (q *Queries) GetAssignment(ctx context.Context, projectID, id int64) (Assignment, error) {
	return scanAssignment(q.db.QueryRowContext(ctx,
		selectAssignment+` WHERE project_id = ? AND id = ?`, projectID, id).Scan)
}

const createAssignment = `INSERT INTO assignments (project_id, title, due_date, status) VALUES (?, ?, ?, ?)`

// CreateAssignmentParams はCreateAssignmentの引数。
type CreateAssignmentParams struct {
	ProjectID int64
	Title     string
	DueDate   sql.NullString
	Status    string
}

// CreateAssignment は課題を作成してIDを返す。
func (q *Queries) CreateAssignment(ctx context.Context, arg CreateAssignmentParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createAssignment, arg.ProjectID, arg.Title, arg.DueDate, arg.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const updateAssignment = `UPDATE assignments SET title = ?, due_date = ?, status = ? WHERE project_id = ? AND id = ?`

// UpdateAssignment は課題の全フィールドを更新する。
func (q *Queries) UpdateAssignment(ctx context.Context, a Assignment) error {
	_, err := q.db.ExecContext(ctx, updateAssignment, a.Title, a.DueDate, a.Status, a.ProjectID, a.ID)
	return err
}

const deleteAssignment = `DELETE FROM assignments WHERE project_id = ? AND id = ?`

// DeleteAssignment は課題を削除し、削除した行数を返す。
func (q *Queries) DeleteAssignment(ctx context.Context, projectID, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAssignment, projectID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const selectEvent = `SELECT id, project_id, title, start_at, end_at, type, location FROM events`

func scanEvent(scan func(dest ...any) error) (Event, error) {
	var e Event
	err := scan(&e.ID, &e.ProjectID, &e.Title, &e.StartAt, &e.EndAt, &e.Type, &e.Location)
	return e, err
}

func (q *Queries) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// ListEventsByProject はプロジェクトのイベントを開始日時の昇順で取得する。
func (q *Queries) ListEventsByProject(ctx context.Context, projectID int64) ([]Event, error) {
	return q.queryEvents(ctx, selectEvent+` WHERE project_id = ? ORDER BY start_at, id`, projectID)
}

// ListEventsInRange は [fromInclusive, toExclusive) と重なるイベントを取得する。
// 終了日時が無いイベントは開始日時だけで判定する。
func (q *Queries) ListEventsInRange(ctx context.Context, projectID int64, fromInclusive, toExclusive string) ([]Event, error) {
	return q.queryEvents(ctx, selectEvent+`
		WHERE project_id = ?
		  AND start_at < ?
		  AND (end_at IS NULL OR end_at >= ?)
		ORDER BY start_at, id`, projectID, toExclusive, fromInclusive)
}

const createEvent = `INSERT INTO events (project_id, title, start_at, end_at, type, location) VALUES (?, ?, ?, ?, ?, ?)`

// CreateEvent はイベントを作成してIDを返す。
func (q *Queries) CreateEvent(ctx context.Context, e Event) (int64, error) {
	res, err := q.db.ExecContext(ctx, createEvent, e.ProjectID, e.Title, e.StartAt, e.EndAt, e.Type, e.Location)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetEvent はプロジェクトに属するイベントを取得する。
func (q *Queries) GetEvent(ctx context.Context, projectID, id int64) (Event, error) {
	return scanEvent(q.db.QueryRowContext(ctx,
		selectEvent+` WHERE project_id = ? AND id = ?`, projectID, id).Scan)
}

const updateEvent = `UPDATE events SET title = ?, start_at = ?, end_at = ?, type = ?, location = ? WHERE project_id = ? AND id = ?`

// UpdateEvent はイベントの全フィールドを更新する。
func (q *Queries) UpdateEvent(ctx context.Context, e Event) error {
	_, err := q.db.ExecContext(ctx, updateEvent, e.Title, e.StartAt, e.EndAt, e.Type, e.Location, e.ProjectID, e.ID)
	return err
}

const deleteEvent = `DELETE FROM events WHERE project_id = ? AND id = ?`

// DeleteEvent はイベントを削除し、削除した行数を返す。
func (q *Queries) DeleteEvent(ctx context.Context, projectID, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEvent, projectID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countEventsByType = `SELECT COUNT(*) FROM events e JOIN projects p ON p.id = e.project_id WHERE p.team_id = ? AND e.type = ?`

// CountTeamEventsByType はチームのプロジェクトに登録された指定種類のイベント数を返す。
func (q *Queries) CountTeamEventsByType(ctx context.Context, teamID int64, eventType string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, countEventsByType, teamID, eventType).Scan(&n)
	return n, err
}

const createFeedback = `INSERT INTO feedback (project_id, author, content, rating) VALUES (?, ?, ?, ?)`

// CreateFeedback はフィードバックを作成してIDを返す。
func (q *Queries) CreateFeedback(ctx context.Context, projectID int64, author, content string, rating int) (int64, error) {
	res, err := q.db.ExecContext(ctx, createFeedback, projectID, author, content, rating)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listFeedbackByProject = `SELECT id, project_id, author, content, rating, created_at FROM feedback WHERE project_id = ? ORDER BY created_at DESC, id DESC`

// ListFeedbackByProject はプロジェクトのフィードバックを新しい順に取得する。
func (q *Queries) ListFeedbackByProject(ctx context.Context, projectID int64) ([]Feedback, error) {
	rows, err := q.db.QueryContext(ctx, listFeedbackByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Author, &f.Content, &f.Rating, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
