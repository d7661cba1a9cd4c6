package retrieval

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"seekbot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLiteIndex(filepath.Join(t.TempDir(), "index.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestSQLiteIndex_AddRetrieveGetDoc(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, domain.Document{
		ID: "1", Title: "Go Concurrency", Text: "goroutines and channels make concurrency tractable",
	}))
	require.NoError(t, idx.Add(ctx, domain.Document{
		ID: "2", Title: "Python Basics", Text: "an introduction to python syntax",
	}))

	results, err := idx.Retrieve(ctx, "goroutines channels", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "1", results[0].ID)
	assert.Greater(t, results[0].Score, 0.0)

	doc, err := idx.GetDoc(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Python Basics", doc.Title)
}

func TestSQLiteIndex_GetDocMissing(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.GetDoc(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteIndex_ReplaceDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, domain.Document{ID: "1", Title: "old", Text: "before the rewrite"}))
	require.NoError(t, idx.Add(ctx, domain.Document{ID: "1", Title: "new", Text: "after the rewrite"}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The FTS row was replaced too: only the new text matches.
	results, err := idx.Retrieve(ctx, "before", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Retrieve(ctx, "after", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Title)
}

func TestSQLiteIndex_EmptyQuery(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Retrieve(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestLoadCorpus_YAMLFile(t *testing.T) {
	idx := newTestIndex(t)
	dir := t.TempDir()
	raw := `documents:
  - id: "base:1"
    title: Go Concurrency
    text: goroutines and channels
  - title: Untitled
    text: a document without an explicit id
  - title: Empty
    text: ""
`
	path := filepath.Join(dir, "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n, err := LoadCorpus(context.Background(), idx, []string{path}, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "empty-text documents are skipped")

	doc, err := idx.GetDoc(context.Background(), "base:1")
	require.NoError(t, err)
	assert.Equal(t, "Go Concurrency", doc.Title)
}
