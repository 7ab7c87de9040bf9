package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/zhouzirui/bzik/backend/internal/model/chat"
)

// SQLiteStore keeps one row per user holding the JSON turn list.
type SQLiteStore struct {
	db     *sql.DB
	limit  int
	logger zerolog.Logger
	now    func() time.Time
}

// OpenSQLite opens (or creates) the database at dbPath.
func OpenSQLite(dbPath string, limit int, logger zerolog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if limit <= 0 {
		limit = DefaultCap
	}
	s := &SQLiteStore{
		db:     db,
		limit:  limit,
		logger: logger.With().Str("component", "conversation.sqlite").Logger(),
		now:    time.Now,
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversations (
		user_id TEXT PRIMARY KEY,
		turns_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, userID string) ([]chat.Turn, error) {
	turns, err := s.load(ctx, s.db, userID)
	if err != nil {
		return []chat.Turn{}, err
	}
	return chat.Clean(turns), nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) load(ctx context.Context, q queryer, userID string) ([]chat.Turn, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT turns_json FROM conversations WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []chat.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	var turns []chat.Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("对话记录损坏，重置为空")
		return []chat.Turn{}, nil
	}
	return turns, nil
}

// Append implements Store. The read-modify-write runs in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, userID string, turns ...chat.Turn) ([]chat.Turn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrPersist, err)
	}
	defer func() { _ = tx.Rollback() }()

	history, err := s.load(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	updated := bound(chat.Clean(history), s.limit, turns...)

	payload, err := json.Marshal(updated)
	if err != nil {
		return updated, fmt.Errorf("%w: encode: %v", ErrPersist, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (user_id, turns_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			turns_json = excluded.turns_json,
			updated_at = excluded.updated_at`,
		userID, string(payload), s.now().Unix(),
	)
	if err != nil {
		return updated, fmt.Errorf("%w: upsert: %v", ErrPersist, err)
	}
	if err := tx.Commit(); err != nil {
		return updated, fmt.Errorf("%w: commit: %v", ErrPersist, err)
	}
	return updated, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
