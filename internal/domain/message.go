package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MsgType classifies the logical content of a message.
type MsgType string

const (
	MsgTypeCommand MsgType = "command"
	MsgTypeText    MsgType = "text"
	MsgTypeVoice   MsgType = "voice"
	MsgTypeOptions MsgType = "options"
	MsgTypeError   MsgType = "error"
)

// MsgSource identifies which side of the conversation produced a message.
type MsgSource string

const (
	MsgSourceUser   MsgSource = "user"
	MsgSourceSystem MsgSource = "system"
)

// Option is one clickable entry attached to an options message. Command is
// an opaque selector command (e.g. "#get_doc 482913") that, when sent back
// as a new turn, fetches the underlying document.
type Option struct {
	Title   string  `json:"title"`
	Command string  `json:"command"`
	Score   float64 `json:"score"`
}

// MsgInfo is the structured metadata bag carried by every message.
type MsgInfo struct {
	ID      string    `json:"msg_id"`
	Type    MsgType   `json:"msg_type"`
	Source  MsgSource `json:"msg_source"`
	Creator string    `json:"msg_creator,omitempty"` // action/command that produced the response
	Options []Option  `json:"options,omitempty"`
}

// StateSnapshot is the flat, persisted form of the dialogue tracker state.
type StateSnapshot struct {
	State string `json:"state"`
}

// Message is one conversational turn. System responses reuse the record of
// the triggering request: Text keeps the user's utterance and Response holds
// the outbound text.
type Message struct {
	Interface string
	UserID    string
	Text      string
	Response  string
	Info      MsgInfo
	Timestamp time.Time

	// Outputs carries the candidate action results for the turn that
	// produced this message; nil on inbound messages.
	Outputs CandidateOutputs

	// DST is the dialogue state snapshot recorded with this turn.
	DST *StateSnapshot
}

// NewInbound builds a user message stamped with the current time. The type
// is derived from the text: a reserved-marker prefix makes it a command.
func NewInbound(iface, userID, text string) Message {
	typ := MsgTypeText
	if IsCommandText(text) {
		typ = MsgTypeCommand
	}
	return Message{
		Interface: iface,
		UserID:    userID,
		Text:      text,
		Info: MsgInfo{
			ID:     uuid.NewString(),
			Type:   typ,
			Source: MsgSourceUser,
		},
		Timestamp: time.Now(),
	}
}

// NewResponse builds the outbound message answering req. The timestamp must
// be strictly greater than the request's; a violation indicates a clock or
// sequencing defect and fails construction with ErrOrderingViolation.
func NewResponse(req Message, response string, info MsgInfo, ts time.Time) (Message, error) {
	if !ts.After(req.Timestamp) {
		return Message{}, fmt.Errorf("%w: response %d, request %d",
			ErrOrderingViolation, ts.UnixMilli(), req.Timestamp.UnixMilli())
	}
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	info.Source = MsgSourceSystem
	return Message{
		Interface: req.Interface,
		UserID:    req.UserID,
		Text:      req.Text,
		Response:  response,
		Info:      info,
		Timestamp: ts,
	}, nil
}

// IsCommand reports whether the message is a command turn.
func (m Message) IsCommand() bool {
	return m.Info.Type == MsgTypeCommand
}
