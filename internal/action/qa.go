package action

import (
	"context"
	"strings"

	"seekbot/internal/domain"
	"seekbot/internal/mrc"
)

// QA answers interrogative turns: it retrieves candidate documents, takes
// the first one with non-empty text as the passage, and asks the reading
// comprehension model for answer spans.
type QA struct {
	retrieval *Retrieval
	model     mrc.Model
	topK      int
}

// NewQA creates the question answering action.
func NewQA(retrieval *Retrieval, model mrc.Model, topK int) *QA {
	if topK <= 0 {
		topK = 3
	}
	return &QA{retrieval: retrieval, model: model, topK: topK}
}

func (a *QA) Kind() domain.ActionKind { return domain.ActionQA }

// Eligible selects QA only for turns that look like questions.
func (a *QA) Eligible(conv domain.Conversation) bool {
	return domain.IsQuestion(conv.Current().Text)
}

func (a *QA) Run(ctx context.Context, conv domain.Conversation) (domain.ResultList, error) {
	docs, err := a.retrieval.Run(ctx, conv)
	if err != nil {
		return nil, err
	}

	var passage string
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) != "" {
			passage = doc.Text
			break
		}
	}
	if passage == "" {
		return nil, nil
	}

	return a.model.Answer(ctx, conv.Current().Text, passage, a.topK)
}
