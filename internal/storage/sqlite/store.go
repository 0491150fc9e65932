package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"notionboard/internal/models"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("not found")

// Store wraps access to the SQLite database holding sessions, OAuth state
// records and waitlist emails.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open initializes a new SQLite store and runs the required migrations.
// The special path ":memory:" opens a private in-memory database.
func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := ":memory:"
	if dbPath != ":memory:" {
		if err := ensureDir(dbPath); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath)
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS oauth_states (
            state TEXT PRIMARY KEY,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            expires_at INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS sessions (
            id TEXT PRIMARY KEY,
            access_token TEXT NOT NULL,
            bot_id TEXT NOT NULL DEFAULT '',
            workspace_id TEXT NOT NULL DEFAULT '',
            workspace_name TEXT NOT NULL DEFAULT '',
            workspace_icon TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            expires_at INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);`,
		`CREATE TABLE IF NOT EXISTS waitlist (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            email TEXT NOT NULL UNIQUE,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveState records an OAuth CSRF state that stays valid for ttl.
func (s *Store) SaveState(ctx context.Context, state string, ttl time.Duration) error {
	if strings.TrimSpace(state) == "" {
		return fmt.Errorf("state must not be empty")
	}
	expires := s.now().Add(ttl).Unix()
	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO oauth_states(state, expires_at) VALUES(?, ?)`, state, expires); err != nil {
		return fmt.Errorf("insert state: %w", err)
	}
	return nil
}

// ConsumeState deletes the state and reports whether it existed unexpired.
// A state can be consumed at most once.
func (s *Store) ConsumeState(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE state = ? AND expires_at > ?`, state, s.now().Unix())
	if err != nil {
		return false, fmt.Errorf("consume state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CreateSession persists a session that stays valid for ttl.
func (s *Store) CreateSession(ctx context.Context, sess models.Session, ttl time.Duration) (models.Session, error) {
	if strings.TrimSpace(sess.ID) == "" {
		return models.Session{}, fmt.Errorf("session id must not be empty")
	}
	if strings.TrimSpace(sess.AccessToken) == "" {
		return models.Session{}, fmt.Errorf("access token must not be empty")
	}

	expires := s.now().Add(ttl).Unix()
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions(id, access_token, bot_id, workspace_id, workspace_name, workspace_icon, expires_at)
        VALUES(?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.AccessToken, sess.BotID, sess.Workspace.ID, sess.Workspace.Name, sess.Workspace.Icon, expires)
	if err != nil {
		return models.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return s.GetSession(ctx, sess.ID)
}

// GetSession fetches an unexpired session by id.
func (s *Store) GetSession(ctx context.Context, id string) (models.Session, error) {
	var (
		sess    models.Session
		expires int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, access_token, bot_id, workspace_id, workspace_name, workspace_icon, created_at, expires_at
        FROM sessions WHERE id = ? AND expires_at > ?`, id, s.now().Unix()).
		Scan(&sess.ID, &sess.AccessToken, &sess.BotID, &sess.Workspace.ID, &sess.Workspace.Name, &sess.Workspace.Icon, &sess.CreatedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}
	sess.ExpiresAt = time.Unix(expires, 0).UTC()
	return sess, nil
}

// DeleteSession removes a session. Deleting an unknown id is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired drops expired sessions and OAuth states and returns how many
// rows were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.now().Unix()
	var total int64
	for _, stmt := range []string{
		`DELETE FROM sessions WHERE expires_at <= ?`,
		`DELETE FROM oauth_states WHERE expires_at <= ?`,
	} {
		res, err := s.db.ExecContext(ctx, stmt, now)
		if err != nil {
			return total, fmt.Errorf("purge expired: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += affected
	}
	if total > 0 {
		s.logger.Debug("purged expired rows", zap.Int64("rows", total))
	}
	return total, nil
}

// AddToWaitlist stores an email once. It reports whether the email was new.
func (s *Store) AddToWaitlist(ctx context.Context, email string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, fmt.Errorf("email must not be empty")
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO waitlist(email) VALUES(?) ON CONFLICT(email) DO NOTHING`, email)
	if err != nil {
		return false, fmt.Errorf("insert waitlist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// WaitlistSize returns the number of stored emails.
func (s *Store) WaitlistSize(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count waitlist: %w", err)
	}
	return n, nil
}
