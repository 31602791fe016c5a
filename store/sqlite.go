package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codewandler/agentrun-go"
	_ "modernc.org/sqlite"
)

const queryTimeout = 5 * time.Second

// SQLite keeps sessions in a SQLite database so the list survives restarts.
type SQLite struct {
	db *sql.DB

	// mu serialises read-modify-write cycles of UpdateSessions.
	mu sync.Mutex
}

// NewSQLite opens or creates the database at dbPath.
func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		position INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_position ON sessions(position);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLite) Sessions() ([]agentrun.SessionEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return s.sessions(ctx, s.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLite) sessions(ctx context.Context, q querier) ([]agentrun.SessionEntry, error) {
	rows, err := q.QueryContext(ctx, `SELECT session_id, title, created_at FROM sessions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []agentrun.SessionEntry
	for rows.Next() {
		var e agentrun.SessionEntry
		if err := rows.Scan(&e.SessionID, &e.Title, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateSessions replaces the stored list with update's result in one
// transaction.
func (s *SQLite) UpdateSessions(update func(prev []agentrun.SessionEntry) []agentrun.SessionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prev, err := s.sessions(ctx, tx)
	if err != nil {
		return err
	}
	next := dedupe(update(prev))

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sessions (session_id, title, created_at, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range next {
		if _, err := stmt.ExecContext(ctx, e.SessionID, e.Title, e.CreatedAt, i); err != nil {
			return fmt.Errorf("insert session %s: %w", e.SessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sessions: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
