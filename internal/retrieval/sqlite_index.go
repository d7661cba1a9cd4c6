package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"seekbot/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteIndex is a document collection index backed by an SQLite FTS5
// virtual table, ranked with bm25. The index is built once (seekbot index)
// and is read-only for the duration of dispatch.
type SQLiteIndex struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLiteIndex opens (creating if needed) an index at path.
func OpenSQLiteIndex(path string, logger *slog.Logger) (*SQLiteIndex, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create index directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	idx := &SQLiteIndex{db: db, logger: logger}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("index migration failed: %w", err)
	}
	return idx, nil
}

func (x *SQLiteIndex) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		content     TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
		doc_id UNINDEXED,
		title,
		content
	);
	`
	_, err := x.db.Exec(schema)
	return err
}

// Add inserts or replaces a document in the collection and its FTS shadow.
func (x *SQLiteIndex) Add(ctx context.Context, doc domain.Document) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, title, content) VALUES (?, ?, ?)`,
		doc.ID, doc.Title, doc.Text,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents_fts WHERE doc_id = ?`, doc.ID,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents_fts (doc_id, title, content) VALUES (?, ?, ?)`,
		doc.ID, doc.Title, doc.Text,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Count returns the number of indexed documents.
func (x *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// Retrieve runs a bm25-ranked full-text query. Scores are negated bm25
// ranks, so larger is better within this engine's own list.
func (x *SQLiteIndex) Retrieve(ctx context.Context, query string, topK int) (domain.ResultList, error) {
	if topK <= 0 {
		topK = 3
	}
	match := ftsMatchExpr(query)
	if match == "" {
		return nil, nil
	}

	rows, err := x.db.QueryContext(ctx,
		`SELECT doc_id, title, content, bm25(documents_fts)
		 FROM documents_fts
		 WHERE documents_fts MATCH ?
		 ORDER BY bm25(documents_fts)
		 LIMIT ?`,
		match, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var results domain.ResultList
	for rows.Next() {
		var doc domain.Document
		var rank float64
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Text, &rank); err != nil {
			return nil, err
		}
		doc.Score = -rank
		results = append(results, doc)
	}
	return results, rows.Err()
}

// GetDoc fetches one document verbatim by collection id.
func (x *SQLiteIndex) GetDoc(ctx context.Context, id string) (domain.Document, error) {
	var doc domain.Document
	err := x.db.QueryRowContext(ctx,
		`SELECT id, title, content FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Title, &doc.Text)
	if err == sql.ErrNoRows {
		return domain.Document{}, fmt.Errorf("document %q not found", id)
	}
	if err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

func (x *SQLiteIndex) Close() error {
	return x.db.Close()
}

// ftsMatchExpr quotes each term and ORs them together, so user text can
// never inject FTS5 query syntax and partial matches still rank.
func ftsMatchExpr(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, "")
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}
