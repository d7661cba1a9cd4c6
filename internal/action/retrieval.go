// Package action contains the concrete capabilities the dispatcher fans
// out to: document retrieval, question answering, and the direct document
// fetch command.
package action

import (
	"context"

	"seekbot/internal/domain"
	"seekbot/internal/retrieval"
)

// Retrieval runs the retrieval engine against a query generated from the
// conversation. A registered retrieval action is always eligible.
type Retrieval struct {
	engine retrieval.Engine
	query  retrieval.QueryGeneration
	topK   int
}

// NewRetrieval creates the retrieval action.
func NewRetrieval(engine retrieval.Engine, query retrieval.QueryGeneration, topK int) *Retrieval {
	if topK <= 0 {
		topK = 3
	}
	return &Retrieval{engine: engine, query: query, topK: topK}
}

func (a *Retrieval) Kind() domain.ActionKind { return domain.ActionRetrieval }

func (a *Retrieval) Eligible(conv domain.Conversation) bool { return true }

func (a *Retrieval) Run(ctx context.Context, conv domain.Conversation) (domain.ResultList, error) {
	q := a.query.Query(conv)
	if q == "" {
		return nil, nil
	}
	return a.engine.Retrieve(ctx, q, a.topK)
}
