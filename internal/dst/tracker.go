// Package dst implements the dialogue state tracker: a small finite-state
// machine advanced once per turn from a coarse intent signal and persisted
// with the conversation.
package dst

import (
	"fmt"
	"strings"

	"seekbot/internal/domain"
)

// State is the coarse conversational phase. The vocabulary is closed; there
// is no terminal state that stops processing.
type State int

const (
	Launch State = iota
	TopicSelection
	Detail
	Closing
)

var stateNames = map[State]string{
	Launch:         "launch",
	TopicSelection: "topic_selection",
	Detail:         "detail",
	Closing:        "closing",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Signal is the input alphabet derived from upstream analysis of a turn.
type Signal string

const (
	SignalTopicRequest    Signal = "topic_request"
	SignalOptionSelection Signal = "option_selection"
	SignalDetailRequest   Signal = "detail_request"
	SignalFarewell        Signal = "farewell"
)

// Result distinguishes a successful transition from the frequent, expected
// case where no transition is defined for the (state, signal) pair.
type Result struct {
	Transitioned bool
	Next         State
	Diagnostic   string
}

// Tracker holds the current dialogue state for one conversation.
type Tracker struct {
	state State
}

// New returns a tracker in the designated entry state.
func New() *Tracker {
	return &Tracker{state: Launch}
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}

// Transition advances the machine for the given signal. On success the
// tracker is mutated in place and the result carries the new state; when no
// transition is defined the state is unchanged and the result carries a
// diagnostic for logging. The diagnostic is never a user-visible response.
func (t *Tracker) Transition(sig Signal, conv domain.Conversation) Result {
	next, ok := transitions[transitionKey{t.state, sig}]
	if !ok {
		return Result{
			Diagnostic: fmt.Sprintf("no transition from %s using input %q", t.state, sig),
		}
	}
	t.state = next
	return Result{Transitioned: true, Next: next}
}

type transitionKey struct {
	from State
	sig  Signal
}

var transitions = map[transitionKey]State{
	{Launch, SignalTopicRequest}:            TopicSelection,
	{Launch, SignalDetailRequest}:           TopicSelection,
	{TopicSelection, SignalTopicRequest}:    TopicSelection,
	{TopicSelection, SignalDetailRequest}:   Detail,
	{TopicSelection, SignalOptionSelection}: Detail,
	{Detail, SignalOptionSelection}:         Detail,
	{Detail, SignalDetailRequest}:           Detail,
	{Detail, SignalTopicRequest}:            TopicSelection,
	{Launch, SignalFarewell}:                Closing,
	{TopicSelection, SignalFarewell}:        Closing,
	{Detail, SignalFarewell}:                Closing,
	{Closing, SignalTopicRequest}:           TopicSelection,
	{Closing, SignalDetailRequest}:          TopicSelection,
}

// Snapshot encodes the tracker state to its flat persisted form.
func (t *Tracker) Snapshot() domain.StateSnapshot {
	return domain.StateSnapshot{State: t.state.String()}
}

// Decode restores a tracker from a persisted snapshot. Unknown state names
// are a decode error.
func Decode(snap domain.StateSnapshot) (*Tracker, error) {
	for s, name := range stateNames {
		if name == snap.State {
			return &Tracker{state: s}, nil
		}
	}
	return nil, fmt.Errorf("decode dialogue state: unknown state %q", snap.State)
}

var farewells = []string{"bye", "goodbye", "quit", "exit", "thanks, bye"}

// SignalFor derives the input alphabet signal from the current turn.
func SignalFor(conv domain.Conversation) Signal {
	cur := conv.Current()
	if cur.IsCommand() {
		return SignalOptionSelection
	}
	text := strings.TrimSpace(strings.ToLower(cur.Text))
	for _, f := range farewells {
		if text == f {
			return SignalFarewell
		}
	}
	if domain.IsQuestion(cur.Text) {
		return SignalDetailRequest
	}
	return SignalTopicRequest
}
