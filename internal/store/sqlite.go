package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/audit"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the durable store, opened with WAL mode. Safe for
// concurrent use.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and runs
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "create migrations table", Err: err}
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "get current migration version", Err: err}
	}

	migrations := []struct {
		version int
		up      string
	}{
		{
			version: 1,
			up: `
				CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					subject_id TEXT NOT NULL UNIQUE,
					email TEXT NOT NULL,
					name TEXT NOT NULL,
					avatar_url TEXT NOT NULL DEFAULT '',
					channel_id TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				);

				CREATE TABLE IF NOT EXISTS credentials (
					user_id TEXT PRIMARY KEY,
					access_sealed TEXT NOT NULL,
					refresh_sealed TEXT NOT NULL DEFAULT '',
					access_expires_at DATETIME NOT NULL,
					scope TEXT NOT NULL DEFAULT '',
					updated_at DATETIME NOT NULL,
					FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
				);

				CREATE TABLE IF NOT EXISTS notes (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					video_id TEXT NOT NULL,
					body TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,
					FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
				);

				CREATE TABLE IF NOT EXISTS audit_events (
					id TEXT PRIMARY KEY,
					kind TEXT NOT NULL,
					severity TEXT NOT NULL,
					user_id TEXT,
					payload TEXT,
					timestamp DATETIME NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_users_subject_id ON users(subject_id);
				CREATE INDEX IF NOT EXISTS idx_notes_user_video ON notes(user_id, video_id);
				CREATE INDEX IF NOT EXISTS idx_audit_events_user ON audit_events(user_id);
				CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
			`,
		},
	}

	tx, err := db.Begin()
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "begin transaction", Err: err}
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, m := range migrations {
		if m.version > currentVersion {
			if _, err := tx.Exec(m.up); err != nil {
				return &errors.ErrDatabaseMigration{Version: m.version, Err: err}
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
				return &errors.ErrDatabaseMigration{Version: m.version, Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &errors.ErrDatabaseQuery{Operation: "commit migrations", Err: err}
	}

	return nil
}

// User operations

// UpsertUser creates or refreshes a user keyed by subject id and returns the
// stored record with its stable internal id.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	id := user.ID
	if id == "" {
		id = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, subject_id, email, name, avatar_url, channel_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			channel_id = CASE WHEN excluded.channel_id != '' THEN excluded.channel_id ELSE users.channel_id END,
			updated_at = excluded.updated_at
	`, id, user.SubjectID, user.Email, user.Name, user.AvatarURL, user.ChannelID, now, now)
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "upsert user", Err: err}
	}

	return s.GetUserBySubject(ctx, user.SubjectID)
}

// GetUser retrieves a user by internal id.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, email, name, avatar_url, channel_id, created_at, updated_at
		FROM users WHERE id = ?
	`, id), id)
}

// GetUserBySubject retrieves a user by provider subject id.
func (s *SQLiteStore) GetUserBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, email, name, avatar_url, channel_id, created_at, updated_at
		FROM users WHERE subject_id = ?
	`, subjectID), subjectID)
}

func (s *SQLiteStore) scanUser(row *sql.Row, key string) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.SubjectID, &u.Email, &u.Name, &u.AvatarURL, &u.ChannelID, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Entity: "user", Key: key}
	}
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "get user", Err: err}
	}
	return &u, nil
}

// SetUserChannelID caches the provider channel id for a user.
func (s *SQLiteStore) SetUserChannelID(ctx context.Context, id, channelID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET channel_id = ?, updated_at = ? WHERE id = ?
	`, channelID, time.Now().UTC(), id)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "set user channel id", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &errors.ErrNotFound{Entity: "user", Key: id}
	}
	return nil
}

// Credential operations

// GetCredential retrieves the credential row for a user.
func (s *SQLiteStore) GetCredential(ctx context.Context, userID string) (*models.Credential, error) {
	var c models.Credential
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, access_sealed, refresh_sealed, access_expires_at, scope, updated_at
		FROM credentials WHERE user_id = ?
	`, userID).Scan(&c.UserID, &c.AccessSealed, &c.RefreshSealed, &c.AccessExpiresAt, &c.Scope, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Entity: "credential", Key: userID}
	}
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "get credential", Err: err}
	}
	return &c, nil
}

// UpsertCredential atomically creates or replaces the credential row for a
// user. Single-row atomicity is all the refresh path relies on.
func (s *SQLiteStore) UpsertCredential(ctx context.Context, cred *models.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, access_sealed, refresh_sealed, access_expires_at, scope, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_sealed = excluded.access_sealed,
			refresh_sealed = excluded.refresh_sealed,
			access_expires_at = excluded.access_expires_at,
			scope = excluded.scope,
			updated_at = excluded.updated_at
	`, cred.UserID, cred.AccessSealed, cred.RefreshSealed, cred.AccessExpiresAt, cred.Scope, time.Now().UTC())
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "upsert credential", Err: err}
	}
	return nil
}

// DeleteCredential removes the credential row for a user.
func (s *SQLiteStore) DeleteCredential(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = ?`, userID)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "delete credential", Err: err}
	}
	return nil
}

// Note operations

// CreateNote inserts a new note.
func (s *SQLiteStore) CreateNote(ctx context.Context, note *models.Note) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, video_id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, note.ID, note.UserID, note.VideoID, note.Body, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "create note", Err: err}
	}
	return nil
}

// GetNote retrieves a note owned by the given user.
func (s *SQLiteStore) GetNote(ctx context.Context, userID, id string) (*models.Note, error) {
	var n models.Note
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, video_id, body, created_at, updated_at
		FROM notes WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&n.ID, &n.UserID, &n.VideoID, &n.Body, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Entity: "note", Key: id}
	}
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "get note", Err: err}
	}
	return &n, nil
}

// ListNotes lists a user's notes, optionally filtered by video id.
func (s *SQLiteStore) ListNotes(ctx context.Context, userID, videoID string) ([]*models.Note, error) {
	query := `
		SELECT id, user_id, video_id, body, created_at, updated_at
		FROM notes WHERE user_id = ?
	`
	args := []interface{}{userID}
	if videoID != "" {
		query += " AND video_id = ?"
		args = append(args, videoID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "list notes", Err: err}
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.VideoID, &n.Body, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, &errors.ErrDatabaseQuery{Operation: "scan note", Err: err}
		}
		notes = append(notes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "list notes", Err: err}
	}
	return notes, nil
}

// UpdateNote updates the body of a note owned by the given user.
func (s *SQLiteStore) UpdateNote(ctx context.Context, note *models.Note) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notes SET body = ?, updated_at = ? WHERE id = ? AND user_id = ?
	`, note.Body, time.Now().UTC(), note.ID, note.UserID)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "update note", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &errors.ErrNotFound{Entity: "note", Key: note.ID}
	}
	return nil
}

// DeleteNote removes a note owned by the given user.
func (s *SQLiteStore) DeleteNote(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "delete note", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &errors.ErrNotFound{Entity: "note", Key: id}
	}
	return nil
}

// Audit operations

// AppendAuditEvent inserts an immutable audit row.
func (s *SQLiteStore) AppendAuditEvent(ctx context.Context, event *audit.Event) error {
	var payload []byte
	if event.Payload != nil {
		var err error
		payload, err = json.Marshal(event.Payload)
		if err != nil {
			return &errors.ErrDatabaseQuery{Operation: "marshal audit payload", Err: err}
		}
	}

	var userID interface{}
	if event.UserID != "" {
		userID = event.UserID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, kind, severity, user_id, payload, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID, string(event.Kind), string(event.Severity), userID, string(payload), event.Timestamp)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "append audit event", Err: err}
	}
	return nil
}

// ListAuditEvents returns the most recent events, optionally for one user.
func (s *SQLiteStore) ListAuditEvents(ctx context.Context, userID string, limit int) ([]*audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, kind, severity, COALESCE(user_id, ''), COALESCE(payload, ''), timestamp
		FROM audit_events
	`
	args := []interface{}{}
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "list audit events", Err: err}
	}
	defer rows.Close()

	var events []*audit.Event
	for rows.Next() {
		var e audit.Event
		var kind, severity, payload string
		if err := rows.Scan(&e.ID, &kind, &severity, &e.UserID, &payload, &e.Timestamp); err != nil {
			return nil, &errors.ErrDatabaseQuery{Operation: "scan audit event", Err: err}
		}
		e.Kind = audit.EventKind(kind)
		e.Severity = audit.Severity(severity)
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
				return nil, &errors.ErrDatabaseQuery{Operation: "unmarshal audit payload", Err: err}
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "list audit events", Err: err}
	}
	return events, nil
}

// PruneAuditEvents removes audit rows older than the cutoff and reports
// how many were deleted.
func (s *SQLiteStore) PruneAuditEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < ?`, before)
	if err != nil {
		return 0, &errors.ErrDatabaseQuery{Operation: "prune audit events", Err: err}
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &errors.ErrDatabaseQuery{Operation: "prune audit events", Err: err}
	}
	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
