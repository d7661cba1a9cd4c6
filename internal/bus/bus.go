package bus

import (
	"log/slog"
	"sync"
	"time"

	"seekbot/internal/domain"
)

const publishTimeout = 10 * time.Second

// InMemoryBus is a Go-channel based message bus connecting interface
// channels to the turn loop.
type InMemoryBus struct {
	inbound  chan domain.Message
	handlers map[string]func(domain.Message)
	mu       sync.RWMutex
	closed   bool
	logger   *slog.Logger
}

// New creates a new InMemoryBus with the given buffer size.
func New(bufferSize int, logger *slog.Logger) *InMemoryBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &InMemoryBus{
		inbound:  make(chan domain.Message, bufferSize),
		handlers: make(map[string]func(domain.Message)),
		logger:   logger,
	}
}

// Publish enqueues an inbound message. Blocks up to 10 seconds if the bus
// is full instead of dropping.
func (b *InMemoryBus) Publish(msg domain.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("attempted to publish to closed bus")
		return
	}

	select {
	case b.inbound <- msg:
	default:
		b.logger.Warn("inbound bus full, waiting...", "interface", msg.Interface, "user", msg.UserID)
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case b.inbound <- msg:
			b.logger.Info("message delivered after wait", "interface", msg.Interface)
		case <-timer.C:
			b.logger.Error("message dropped: bus full for 10s",
				"interface", msg.Interface,
				"user", msg.UserID,
			)
		}
	}
}

func (b *InMemoryBus) Subscribe() <-chan domain.Message {
	return b.inbound
}

func (b *InMemoryBus) SendOutbound(msg domain.Message) {
	b.mu.RLock()
	handler, ok := b.handlers[msg.Interface]
	b.mu.RUnlock()

	if !ok {
		b.logger.Warn("no handler registered for interface",
			"interface", msg.Interface,
		)
		return
	}

	handler(msg)
}

func (b *InMemoryBus) OnOutbound(interfaceName string, handler func(domain.Message)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[interfaceName] = handler
}

func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.inbound)
	}
}
