// Package selector converts the candidate outputs of one turn into exactly
// one outbound message using a fixed, deterministic priority policy: a
// direct document fetch wins, then an exact answer to a question, then
// retrieval options, then a fixed fallback.
package selector

import (
	"fmt"
	"log/slog"
	"time"

	"seekbot/internal/domain"
	"seekbot/internal/metrics"
)

// FallbackText is returned when no action produced a usable result. This is
// an expected steady-state outcome, not an error.
const FallbackText = "No response has been found! Please try again!"

const retrievalPrompt = "Retrieved document list (click to see the document content):"

// Selector implements the output selection policy.
type Selector struct {
	logger *slog.Logger
	now    func() time.Time
}

// New creates a selector. now is the clock used to stamp outbound messages;
// pass nil for time.Now.
func New(logger *slog.Logger, now func() time.Time) *Selector {
	if now == nil {
		now = time.Now
	}
	return &Selector{logger: logger, now: now}
}

// Select picks one response for the turn. It fails with
// ErrUnrecognizedCandidate when the map contains a key outside the closed
// action vocabulary, and with ErrOrderingViolation when the outbound
// timestamp does not strictly follow the request's.
func (s *Selector) Select(conv domain.Conversation, candidates domain.CandidateOutputs) (domain.Message, error) {
	// The vocabulary is closed and self-checking: an unknown key means an
	// action was registered without a selection rule.
	for kind := range candidates {
		switch kind {
		case domain.ActionGetDoc, domain.ActionQA, domain.ActionRetrieval:
		default:
			return domain.Message{}, fmt.Errorf("%w: %q", domain.ErrUnrecognizedCandidate, kind)
		}
	}

	cur := conv.Current()
	var info domain.MsgInfo
	var response string

	switch {
	case len(candidates[domain.ActionGetDoc]) > 0:
		info.Type = domain.MsgTypeText
		info.Creator = string(domain.ActionGetDoc)
		response = candidates[domain.ActionGetDoc][0].Text

	case len(candidates[domain.ActionQA]) > 0 &&
		candidates[domain.ActionQA][0].Text != "" &&
		domain.IsQuestion(cur.Text):
		info.Type = domain.MsgTypeText
		info.Creator = string(domain.ActionQA)
		response = candidates[domain.ActionQA][0].Text

	case len(candidates[domain.ActionRetrieval]) > 0:
		info.Type = domain.MsgTypeOptions
		info.Creator = string(domain.ActionRetrieval)
		response = retrievalPrompt
		docs := candidates[domain.ActionRetrieval]
		info.Options = make([]domain.Option, 0, len(docs))
		for _, doc := range docs {
			info.Options = append(info.Options, domain.Option{
				Title:   doc.Title,
				Command: domain.CommandPrefix + "get_doc " + doc.ID,
				Score:   doc.Score,
			})
		}

	default:
		metrics.FallbacksTotal.Inc()
		info.Type = domain.MsgTypeText
		info.Creator = "no_answer"
		response = FallbackText
	}

	// The timestamp is computed after selection; the ordering invariant is
	// re-validated by the message constructor.
	out, err := domain.NewResponse(cur, response, info, s.now())
	if err != nil {
		return domain.Message{}, err
	}
	out.Outputs = candidates
	return out, nil
}
