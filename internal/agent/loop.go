package agent

import (
	"context"
	"log/slog"

	"seekbot/internal/domain"
)

// Loop consumes inbound messages from the bus and replies through it.
// Turns are processed strictly sequentially: the dispatcher's internal
// fan-out is the only parallelism in the pipeline.
type Loop struct {
	handler *Handler
	bus     domain.MessageBus
	logger  *slog.Logger
}

// NewLoop creates the bus-driven turn loop.
func NewLoop(handler *Handler, msgBus domain.MessageBus, logger *slog.Logger) *Loop {
	return &Loop{handler: handler, bus: msgBus, logger: logger}
}

// Run blocks until ctx is cancelled or the bus closes. In strict mode a
// configuration defect aborts the loop with the underlying error.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("turn loop started")
	inbound := l.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("turn loop stopping")
			return nil
		case msg, ok := <-inbound:
			if !ok {
				l.logger.Info("inbound channel closed, turn loop stopping")
				return nil
			}
			out, err := l.handler.HandleTurn(ctx, msg)
			if err != nil {
				l.logger.Error("fatal turn processing error", "err", err)
				return err
			}
			l.bus.SendOutbound(out)
		}
	}
}
