package dst

import (
	"testing"

	"seekbot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conversation(text string) domain.Conversation {
	return domain.NewConversation(domain.NewInbound("test", "u1", text), nil)
}

func TestTransition_Table(t *testing.T) {
	tests := []struct {
		from State
		sig  Signal
		want State
		ok   bool
	}{
		{Launch, SignalTopicRequest, TopicSelection, true},
		{Launch, SignalDetailRequest, TopicSelection, true},
		{Launch, SignalFarewell, Closing, true},
		{Launch, SignalOptionSelection, Launch, false},
		{TopicSelection, SignalOptionSelection, Detail, true},
		{TopicSelection, SignalDetailRequest, Detail, true},
		{TopicSelection, SignalTopicRequest, TopicSelection, true},
		{Detail, SignalOptionSelection, Detail, true},
		{Detail, SignalTopicRequest, TopicSelection, true},
		{Detail, SignalFarewell, Closing, true},
		{Closing, SignalTopicRequest, TopicSelection, true},
		{Closing, SignalFarewell, Closing, false},
	}
	for _, tt := range tests {
		tr := &Tracker{state: tt.from}
		res := tr.Transition(tt.sig, conversation("x"))
		if tt.ok {
			assert.True(t, res.Transitioned, "%s + %s", tt.from, tt.sig)
			assert.Equal(t, tt.want, res.Next, "%s + %s", tt.from, tt.sig)
			assert.Equal(t, tt.want, tr.State())
		} else {
			assert.False(t, res.Transitioned, "%s + %s", tt.from, tt.sig)
			assert.Equal(t, tt.from, tr.State(), "state unchanged on no-transition")
			assert.NotEmpty(t, res.Diagnostic)
		}
	}
}

func TestNew_StartsAtLaunch(t *testing.T) {
	assert.Equal(t, Launch, New().State())
}

func TestSnapshotDecode_RoundTrip(t *testing.T) {
	for _, s := range []State{Launch, TopicSelection, Detail, Closing} {
		tr := &Tracker{state: s}
		snap := tr.Snapshot()

		restored, err := Decode(snap)
		require.NoError(t, err, "state %s", s)
		assert.Equal(t, s, restored.State())
	}
}

func TestDecode_UnknownState(t *testing.T) {
	_, err := Decode(domain.StateSnapshot{State: "hibernating"})
	require.Error(t, err)
}

func TestSignalFor(t *testing.T) {
	tests := []struct {
		text string
		want Signal
	}{
		{"#get_doc 42", SignalOptionSelection},
		{"bye", SignalFarewell},
		{"Goodbye", SignalFarewell},
		{"what is a goroutine?", SignalDetailRequest},
		{"how channels work", SignalDetailRequest},
		{"go concurrency", SignalTopicRequest},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SignalFor(conversation(tt.text)), "text %q", tt.text)
	}
}
