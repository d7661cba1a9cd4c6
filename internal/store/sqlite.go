// Package store implements the interaction store: append-only persistence
// of conversational turns and recovery of recent history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"seekbot/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.InteractionStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the interaction database.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id          TEXT PRIMARY KEY,
		interface   TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		text        TEXT,
		response    TEXT,
		msg_type    TEXT NOT NULL,
		msg_source  TEXT NOT NULL,
		msg_creator TEXT,
		options     TEXT,
		dst_state   TEXT,
		timestamp   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append persists one turn. The store is append-only; existing rows are
// never updated.
func (s *SQLiteStore) Append(ctx context.Context, msg domain.Message) error {
	var options []byte
	if len(msg.Info.Options) > 0 {
		var err error
		options, err = json.Marshal(msg.Info.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
	}

	var dstState string
	if msg.DST != nil {
		dstState = msg.DST.State
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, interface, user_id, text, response, msg_type, msg_source, msg_creator, options, dst_state, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.Info.ID, msg.Interface, msg.UserID, msg.Text, msg.Response,
		string(msg.Info.Type), string(msg.Info.Source), msg.Info.Creator,
		string(options), dstState, msg.Timestamp.UnixMilli(),
	)
	return err
}

// RecentHistory returns the user's messages most-recent-first, bounded by
// both the age window and the count cap.
func (s *SQLiteStore) RecentHistory(ctx context.Context, userID string, maxAge time.Duration, maxCount int) ([]domain.Message, error) {
	if maxCount <= 0 {
		maxCount = 10
	}
	cutoff := time.Now().Add(-maxAge).UnixMilli()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, interface, user_id, text, response, msg_type, msg_source, msg_creator, options, dst_state, timestamp
		 FROM messages
		 WHERE user_id = ? AND timestamp > ?
		 ORDER BY timestamp DESC, rowid DESC
		 LIMIT ?`,
		userID, cutoff, maxCount,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		var options, dstState string
		var ts int64
		if err := rows.Scan(
			&msg.Info.ID, &msg.Interface, &msg.UserID, &msg.Text, &msg.Response,
			&msg.Info.Type, &msg.Info.Source, &msg.Info.Creator,
			&options, &dstState, &ts,
		); err != nil {
			return nil, err
		}
		if options != "" {
			if err := json.Unmarshal([]byte(options), &msg.Info.Options); err != nil {
				s.logger.Warn("cannot decode stored options", "msg_id", msg.Info.ID, "err", err)
			}
		}
		if dstState != "" {
			msg.DST = &domain.StateSnapshot{State: dstState}
		}
		msg.Timestamp = time.UnixMilli(ts)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
