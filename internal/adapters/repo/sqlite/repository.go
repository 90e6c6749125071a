// Package sqlite keeps sessions in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/lisp-sessions/internal/domain"
	"github.com/bnema/lisp-sessions/internal/ports"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	busyTimeout = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	key        TEXT PRIMARY KEY,
	code       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS participants (
	session_key TEXT    NOT NULL REFERENCES sessions(key) ON DELETE CASCADE,
	participant TEXT    NOT NULL,
	position    INTEGER NOT NULL,
	PRIMARY KEY (session_key, participant)
);
`

type Repository struct {
	db *sql.DB
}

var _ ports.SessionRepository = (*Repository)(nil)

// Open opens or creates the database at path. An empty path opens a
// private in-memory database. Write transactions start IMMEDIATE and wait
// up to busyTimeout for other lses processes.
func Open(ctx context.Context, path string) (*Repository, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	} else if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create sqlite store directory: %w", err)
	}
	dsn += fmt.Sprintf("?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_txlock=immediate", busyTimeout.Milliseconds())

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// One connection keeps an in-memory database alive and avoids
	// SQLITE_BUSY between our own writers.
	db.SetMaxOpenConns(1)

	repo, err := NewRepository(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewRepository creates the tables when they are missing.
func NewRepository(ctx context.Context, db *sql.DB) (*Repository, error) {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Get(ctx context.Context, key domain.ThreadKey) (domain.Session, error) {
	var (
		code      string
		createdAt string
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT code, created_at, updated_at FROM sessions WHERE key = ?`, string(key),
	).Scan(&code, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, key)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session %s: %w", key, err)
	}

	participants, err := r.participants(ctx, key)
	if err != nil {
		return domain.Session{}, err
	}

	return domain.Session{
		Key:          key,
		Participants: participants,
		Code:         domain.NewCodeBuffer(code),
		CreatedAt:    parseTime(createdAt),
		UpdatedAt:    parseTime(updatedAt),
	}, nil
}

func (r *Repository) Save(ctx context.Context, session domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (key, code, created_at, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET code = excluded.code, created_at = excluded.created_at, updated_at = excluded.updated_at`,
			string(session.Key), session.Code.Text(), formatTime(session.CreatedAt), formatTime(session.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		return replaceParticipants(ctx, tx, session)
	})
}

func (r *Repository) Create(ctx context.Context, session domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (key, code, created_at, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO NOTHING`,
			string(session.Key), session.Code.Text(), formatTime(session.CreatedAt), formatTime(session.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		if inserted == 0 {
			return fmt.Errorf("%w: %s", domain.ErrSessionExists, session.Key)
		}
		return replaceParticipants(ctx, tx, session)
	})
}

func (r *Repository) List(ctx context.Context) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, code, created_at, updated_at FROM sessions ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var sessions []domain.Session
	for rows.Next() {
		var key, code, createdAt, updatedAt string
		if err := rows.Scan(&key, &code, &createdAt, &updatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, domain.Session{
			Key:       domain.ThreadKey(key),
			Code:      domain.NewCodeBuffer(code),
			CreatedAt: parseTime(createdAt),
			UpdatedAt: parseTime(updatedAt),
		})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	// Close before querying participants, the pool holds one connection.
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close session rows: %w", err)
	}

	for i := range sessions {
		participants, err := r.participants(ctx, sessions[i].Key)
		if err != nil {
			return nil, err
		}
		sessions[i].Participants = participants
	}

	return sessions, nil
}

func (r *Repository) participants(ctx context.Context, key domain.ThreadKey) ([]domain.ParticipantID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT participant FROM participants WHERE session_key = ? ORDER BY position`, string(key))
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.ParticipantID
	for rows.Next() {
		var participant string
		if err := rows.Scan(&participant); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, domain.ParticipantID(participant))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

func replaceParticipants(ctx context.Context, tx *sql.Tx, session domain.Session) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE session_key = ?`, string(session.Key)); err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO participants (session_key, participant, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare participant insert: %w", err)
	}
	defer stmt.Close()

	for i, participant := range session.Participants {
		if _, err := stmt.ExecContext(ctx, string(session.Key), string(participant), i); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}
	return nil
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rollbackErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}
