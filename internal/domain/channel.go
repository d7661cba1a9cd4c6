package domain

import "context"

// Channel is the interface for user-facing I/O (Telegram, terminal, batch
// files). A channel turns provider-specific events into Messages published
// on the bus and renders outbound Messages back to the user.
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
}
