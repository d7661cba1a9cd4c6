package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"seekbot/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "interactions.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustAppend(t *testing.T, s *SQLiteStore, msg domain.Message) {
	t.Helper()
	if err := s.Append(context.Background(), msg); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestAppendAndRecentHistory(t *testing.T) {
	s := newTestStore(t)

	first := domain.NewInbound("stdio", "u1", "first")
	first.Timestamp = time.Now().Add(-2 * time.Minute)
	second := domain.NewInbound("stdio", "u1", "second")
	second.Timestamp = time.Now().Add(-time.Minute)
	mustAppend(t, s, first)
	mustAppend(t, s, second)

	history, err := s.RecentHistory(context.Background(), "u1", 10*time.Minute, 10)
	if err != nil {
		t.Fatalf("recent history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d messages, want 2", len(history))
	}
	// Most recent first.
	if history[0].Text != "second" || history[1].Text != "first" {
		t.Errorf("wrong order: %q then %q", history[0].Text, history[1].Text)
	}
}

func TestRecentHistory_AgeWindow(t *testing.T) {
	s := newTestStore(t)

	old := domain.NewInbound("stdio", "u1", "stale")
	old.Timestamp = time.Now().Add(-30 * time.Minute)
	fresh := domain.NewInbound("stdio", "u1", "fresh")
	mustAppend(t, s, old)
	mustAppend(t, s, fresh)

	history, err := s.RecentHistory(context.Background(), "u1", 10*time.Minute, 10)
	if err != nil {
		t.Fatalf("recent history: %v", err)
	}
	if len(history) != 1 || history[0].Text != "fresh" {
		t.Errorf("expected only the fresh message, got %v", history)
	}
}

func TestRecentHistory_CountCap(t *testing.T) {
	s := newTestStore(t)

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		msg := domain.NewInbound("stdio", "u1", "turn")
		msg.Timestamp = base.Add(time.Duration(i) * time.Second)
		mustAppend(t, s, msg)
	}

	history, err := s.RecentHistory(context.Background(), "u1", 10*time.Minute, 3)
	if err != nil {
		t.Fatalf("recent history: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("got %d messages, want 3", len(history))
	}
}

func TestRecentHistory_UserIsolation(t *testing.T) {
	s := newTestStore(t)

	mustAppend(t, s, domain.NewInbound("stdio", "u1", "mine"))
	mustAppend(t, s, domain.NewInbound("stdio", "u2", "theirs"))

	history, err := s.RecentHistory(context.Background(), "u1", 10*time.Minute, 10)
	if err != nil {
		t.Fatalf("recent history: %v", err)
	}
	if len(history) != 1 || history[0].Text != "mine" {
		t.Errorf("expected only u1's message, got %v", history)
	}
}

func TestAppend_RoundTripsMetadata(t *testing.T) {
	s := newTestStore(t)

	req := domain.NewInbound("telegram", "u1", "go concurrency")
	out, err := domain.NewResponse(req, "Retrieved document list (click to see the document content):", domain.MsgInfo{
		Type:    domain.MsgTypeOptions,
		Creator: "retrieval",
		Options: []domain.Option{{Title: "Go Concurrency", Command: "#get_doc 7", Score: 1.5}},
	}, req.Timestamp.Add(time.Second))
	if err != nil {
		t.Fatalf("new response: %v", err)
	}
	out.DST = &domain.StateSnapshot{State: "topic_selection"}
	mustAppend(t, s, out)

	history, err := s.RecentHistory(context.Background(), "u1", 10*time.Minute, 10)
	if err != nil {
		t.Fatalf("recent history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("got %d messages, want 1", len(history))
	}
	got := history[0]
	if got.Info.Type != domain.MsgTypeOptions || got.Info.Creator != "retrieval" {
		t.Errorf("metadata lost: %+v", got.Info)
	}
	if len(got.Info.Options) != 1 || got.Info.Options[0].Command != "#get_doc 7" {
		t.Errorf("options lost: %+v", got.Info.Options)
	}
	if got.DST == nil || got.DST.State != "topic_selection" {
		t.Errorf("dialogue state lost: %+v", got.DST)
	}
}
