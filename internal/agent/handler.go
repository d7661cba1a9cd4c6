// Package agent drives one conversational turn end to end: history lookup,
// action dispatch, dialogue state tracking, output selection, persistence.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"seekbot/internal/bus"
	"seekbot/internal/dispatcher"
	"seekbot/internal/domain"
	"seekbot/internal/dst"
	"seekbot/internal/metrics"
	"seekbot/internal/selector"
)

const (
	defaultHistoryMaxAge   = 10 * time.Minute
	defaultHistoryMaxCount = 10

	// unknownCommandText is the distinct response for unrecognized
	// commands; it is never the generic fallback.
	unknownCommandText = "Unknown command! Please try again!"

	// internalErrorText is the uniform user-visible text for internal
	// failures in non-strict mode.
	internalErrorText = "Something went wrong! Please try again!"
)

// Handler processes turns sequentially for the whole process; per-user
// turn ordering is guaranteed by the interface layer, so no locking is
// needed around dialogue state.
type Handler struct {
	store      domain.InteractionStore
	dispatcher *dispatcher.Dispatcher
	selector   *selector.Selector
	events     *bus.EventBus
	logger     *slog.Logger

	// strict aborts turn processing on registration/ordering errors
	// instead of degrading to a generic error message. Enable it in
	// development so misconfigured actions fail loudly.
	strict bool

	historyMaxAge   time.Duration
	historyMaxCount int
}

// HandlerConfig holds the turn handler dependencies.
type HandlerConfig struct {
	Store           domain.InteractionStore
	Dispatcher      *dispatcher.Dispatcher
	Selector        *selector.Selector
	Events          *bus.EventBus
	Logger          *slog.Logger
	Strict          bool
	HistoryMaxAge   time.Duration
	HistoryMaxCount int
}

// NewHandler creates a turn handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.HistoryMaxAge <= 0 {
		cfg.HistoryMaxAge = defaultHistoryMaxAge
	}
	if cfg.HistoryMaxCount <= 0 {
		cfg.HistoryMaxCount = defaultHistoryMaxCount
	}
	return &Handler{
		store:           cfg.Store,
		dispatcher:      cfg.Dispatcher,
		selector:        cfg.Selector,
		events:          cfg.Events,
		logger:          cfg.Logger,
		strict:          cfg.Strict,
		historyMaxAge:   cfg.HistoryMaxAge,
		historyMaxCount: cfg.HistoryMaxCount,
	}
}

// HandleTurn is the turn-processing entry point consumed by every channel.
// Per-action failures are contained by the dispatcher and never escape
// here; the returned error is non-nil only in strict mode, for defects
// that should halt processing (unknown command excepted, which always
// yields a distinct error message).
func (h *Handler) HandleTurn(ctx context.Context, inbound domain.Message) (domain.Message, error) {
	metrics.TurnsTotal.Inc()
	h.logger.Info("processing turn",
		"interface", inbound.Interface,
		"user", inbound.UserID,
		"type", inbound.Info.Type,
	)

	history, err := h.store.RecentHistory(ctx, inbound.UserID, h.historyMaxAge, h.historyMaxCount)
	if err != nil {
		h.logger.Warn("failed to load history, continuing without it", "err", err)
		history = nil
	}
	conv := domain.NewConversation(inbound, history)
	h.append(ctx, inbound)

	outputs, err := h.dispatcher.Dispatch(ctx, conv)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownCommand) {
			h.logger.Warn("unknown command", "text", inbound.Text, "err", err)
			return h.respondError(ctx, inbound, unknownCommandText)
		}
		return h.fail(ctx, inbound, err)
	}

	// Advance the dialogue state machine; the result is informational and
	// recorded with the turn, never surfaced to the user.
	tracker := h.trackerFor(conv)
	sig := dst.SignalFor(conv)
	if res := tracker.Transition(sig, conv); !res.Transitioned {
		h.logger.Debug("dialogue state unchanged", "diagnostic", res.Diagnostic)
		if h.events != nil {
			h.events.Emit(bus.Event{
				Type:    bus.EventDSTNoTransition,
				Source:  "agent",
				Payload: map[string]any{"diagnostic": res.Diagnostic},
			})
		}
	}

	out, err := h.selector.Select(conv, outputs)
	if err != nil {
		return h.fail(ctx, inbound, err)
	}
	snap := tracker.Snapshot()
	out.DST = &snap

	h.append(ctx, out)
	if h.events != nil {
		h.events.Emit(bus.Event{
			Type:    bus.EventTurnProcessed,
			Source:  "agent",
			Payload: map[string]any{"user": inbound.UserID, "creator": out.Info.Creator},
		})
	}
	return out, nil
}

// trackerFor restores the dialogue tracker from the most recent persisted
// snapshot, falling back to the entry state for brand-new conversations or
// undecodable snapshots.
func (h *Handler) trackerFor(conv domain.Conversation) *dst.Tracker {
	for _, msg := range conv.History() {
		if msg.DST == nil {
			continue
		}
		tracker, err := dst.Decode(*msg.DST)
		if err != nil {
			h.logger.Warn("cannot decode dialogue state, starting fresh", "err", err)
			break
		}
		return tracker
	}
	return dst.New()
}

// fail handles defects (unrecognized candidate keys, ordering violations):
// loud abort in strict mode, generic error message otherwise.
func (h *Handler) fail(ctx context.Context, inbound domain.Message, err error) (domain.Message, error) {
	if h.strict {
		return domain.Message{}, err
	}
	h.logger.Error("turn processing failed", "err", err)
	return h.respondError(ctx, inbound, internalErrorText)
}

// respondError builds, persists, and returns a fixed-text error message.
func (h *Handler) respondError(ctx context.Context, inbound domain.Message, text string) (domain.Message, error) {
	out, err := domain.NewResponse(inbound, text, domain.MsgInfo{
		Type:    domain.MsgTypeError,
		Creator: "error",
	}, time.Now())
	if err != nil {
		// The inbound timestamp is in the future relative to our clock;
		// nothing sensible can be persisted for this turn.
		return domain.Message{}, err
	}
	h.append(ctx, out)
	return out, nil
}

// append persists a message, fire-and-forget: persistence failures are
// logged but never fail the turn.
func (h *Handler) append(ctx context.Context, msg domain.Message) {
	if err := h.store.Append(ctx, msg); err != nil {
		h.logger.Warn("failed to persist message", "msg_id", msg.Info.ID, "err", err)
	}
}
