package domain

// Conversation is the ordered message history for one user, most-recent
// first: index 0 is the current turn, the rest is read-only context.
type Conversation []Message

// NewConversation prepends the current turn to a most-recent-first history
// window.
func NewConversation(current Message, history []Message) Conversation {
	conv := make(Conversation, 0, len(history)+1)
	conv = append(conv, current)
	conv = append(conv, history...)
	return conv
}

// Current returns the newest message of the conversation.
func (c Conversation) Current() Message {
	return c[0]
}

// History returns the prior turns, newest first.
func (c Conversation) History() []Message {
	if len(c) <= 1 {
		return nil
	}
	return c[1:]
}
