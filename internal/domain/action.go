package domain

import "context"

// ActionKind enumerates the closed vocabulary of backend capabilities.
// Registering an action with a kind the output selector has no policy for
// is a configuration error and fails the turn loudly.
type ActionKind string

const (
	ActionRetrieval ActionKind = "retrieval"
	ActionQA        ActionKind = "qa"
	ActionGetDoc    ActionKind = "get_doc"
)

// CandidateOutputs maps an action kind to its result list for one turn.
// A missing key means the action was either not applicable or it
// failed/timed out; consumers must not distinguish the two.
type CandidateOutputs map[ActionKind]ResultList

// Action is a pluggable capability invoked by the dispatcher.
//
// Eligible is a cheap, synchronous predicate over the current turn; it must
// never do the action's actual work. Run executes inside an isolated,
// cancellable goroutine: it must honor ctx, must not mutate shared state,
// and must treat the conversation as read-only.
type Action interface {
	Kind() ActionKind
	Eligible(conv Conversation) bool
	Run(ctx context.Context, conv Conversation) (ResultList, error)
}
