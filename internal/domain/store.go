package domain

import (
	"context"
	"time"
)

// InteractionStore persists every conversational turn and recovers recent
// history. Append is fire-and-forget from the pipeline's perspective;
// RecentHistory returns messages most-recent-first, bounded by both an age
// window and a count cap (whichever is tighter).
type InteractionStore interface {
	Append(ctx context.Context, msg Message) error
	RecentHistory(ctx context.Context, userID string, maxAge time.Duration, maxCount int) ([]Message, error)
	Close() error
}
