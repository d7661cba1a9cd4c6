// Package dispatcher runs the eligible actions for a turn concurrently
// under a shared wall-clock deadline and aggregates whatever completed in
// time. Individual action failures never fail the dispatch; only a
// malformed or unrecognized command is fatal for a turn.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"seekbot/internal/bus"
	"seekbot/internal/domain"
	"seekbot/internal/metrics"
)

const defaultTimeout = 15 * time.Second

// Dispatcher holds the registered actions and command handlers.
type Dispatcher struct {
	actions  map[domain.ActionKind]domain.Action
	ordered  []domain.ActionKind // registration order, for a deterministic eligibility pass
	commands map[string]Command
	timeout  time.Duration
	events   *bus.EventBus
	logger   *slog.Logger
}

// Config holds the dispatcher dependencies and tuning parameters.
type Config struct {
	Timeout time.Duration // shared per-turn deadline for all running actions
	Events  *bus.EventBus
	Logger  *slog.Logger
}

// New creates a dispatcher with no registered actions.
func New(cfg Config) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Dispatcher{
		actions:  make(map[domain.ActionKind]domain.Action),
		commands: make(map[string]Command),
		timeout:  cfg.Timeout,
		events:   cfg.Events,
		logger:   cfg.Logger,
	}
}

// Register adds an action to the fan-out set. Registering a second action
// with the same kind replaces the first.
func (d *Dispatcher) Register(a domain.Action) {
	if _, exists := d.actions[a.Kind()]; !exists {
		d.ordered = append(d.ordered, a.Kind())
	}
	d.actions[a.Kind()] = a
	d.logger.Debug("registered action", "kind", a.Kind())
}

// RegisterCommand adds a built-in command handler, keyed by its marker name
// (e.g. "#get_doc").
func (d *Dispatcher) RegisterCommand(c Command) {
	d.commands[c.Name()] = c
	d.logger.Debug("registered command", "name", c.Name())
}

// Kinds returns the registered action kinds in registration order.
func (d *Dispatcher) Kinds() []domain.ActionKind {
	return append([]domain.ActionKind(nil), d.ordered...)
}

// result is the single-writer slot one action goroutine delivers into the
// aggregation channel.
type result struct {
	kind    domain.ActionKind
	results domain.ResultList
	err     error
}

// Dispatch processes the current turn. Command turns short-circuit to
// exactly one synchronous handler; all other turns fan out to every
// eligible action concurrently. The returned map contains only the actions
// that produced a non-empty result before the deadline.
func (d *Dispatcher) Dispatch(ctx context.Context, conv domain.Conversation) (domain.CandidateOutputs, error) {
	start := time.Now()
	defer func() {
		metrics.DispatchLatency.Observe(time.Since(start).Seconds())
	}()

	if conv.Current().IsCommand() {
		return d.runCommand(ctx, conv)
	}

	// Cheap, sequential applicability pass; must not run any action.
	var eligible []domain.Action
	for _, kind := range d.ordered {
		if a := d.actions[kind]; a.Eligible(conv) {
			eligible = append(eligible, a)
		}
	}
	if len(eligible) == 0 {
		return domain.CandidateOutputs{}, nil
	}

	// One wall-clock deadline governs every unit; there is no per-action
	// override.
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	slots := make(chan result, len(eligible))
	for _, a := range eligible {
		go func(a domain.Action) {
			defer func() {
				if r := recover(); r != nil {
					slots <- result{kind: a.Kind(), err: fmt.Errorf("action panic: %v", r)}
				}
			}()
			rs, err := a.Run(ctx, conv)
			slots <- result{kind: a.Kind(), results: rs, err: err}
		}(a)
	}

	outputs := domain.CandidateOutputs{}
	seen := make(map[domain.ActionKind]bool, len(eligible))
	collect := func(s result) {
		seen[s.kind] = true
		switch {
		case errors.Is(s.err, context.DeadlineExceeded), errors.Is(s.err, context.Canceled):
			d.reportTimeout(s.kind)
		case s.err != nil:
			d.reportError(s.kind, s.err)
		case len(s.results) > 0:
			outputs[s.kind] = s.results
		}
	}

	remaining := len(eligible)
	for remaining > 0 {
		select {
		case s := <-slots:
			remaining--
			collect(s)
		case <-ctx.Done():
			// Deadline expired. Results that were already delivered into
			// the buffer still count; drain those, then abandon the units
			// that are genuinely still running. Their late sends land in
			// the buffered channel and are discarded.
			for remaining > 0 {
				select {
				case s := <-slots:
					remaining--
					collect(s)
				default:
					remaining = 0
				}
			}
			for _, a := range eligible {
				if !seen[a.Kind()] {
					d.reportTimeout(a.Kind())
				}
			}
		}
	}
	return outputs, nil
}

// runCommand parses and executes a command turn synchronously. An
// unrecognized command is fatal for the turn; a handler failure is
// contained like any action failure and yields an empty candidate map.
func (d *Dispatcher) runCommand(ctx context.Context, conv domain.Conversation) (domain.CandidateOutputs, error) {
	metrics.CommandsTotal.Inc()

	name, arg := ParseCommand(conv.Current().Text)
	cmd, ok := d.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, name)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	rs, err := cmd.Run(ctx, conv, arg)
	if err != nil {
		d.reportError(cmd.Kind(), err)
		return domain.CandidateOutputs{}, nil
	}
	if len(rs) == 0 {
		return domain.CandidateOutputs{}, nil
	}
	return domain.CandidateOutputs{cmd.Kind(): rs}, nil
}

func (d *Dispatcher) reportError(kind domain.ActionKind, err error) {
	metrics.ActionErrors.Inc()
	d.logger.Warn("action failed", "kind", kind, "err", err)
	if d.events != nil {
		d.events.Emit(bus.Event{
			Type:    bus.EventActionError,
			Source:  "dispatcher",
			Payload: map[string]any{"action": string(kind), "error": err.Error()},
		})
	}
}

func (d *Dispatcher) reportTimeout(kind domain.ActionKind) {
	metrics.ActionTimeouts.Inc()
	d.logger.Warn("action did not respond before the deadline", "kind", kind, "timeout", d.timeout)
	if d.events != nil {
		d.events.Emit(bus.Event{
			Type:    bus.EventActionTimeout,
			Source:  "dispatcher",
			Payload: map[string]any{"action": string(kind)},
		})
	}
}
