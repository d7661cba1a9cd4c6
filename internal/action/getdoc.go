package action

import (
	"context"
	"fmt"

	"seekbot/internal/domain"
	"seekbot/internal/retrieval"
)

// GetDocCommand is the name of the direct document fetch command.
const GetDocCommand = domain.CommandPrefix + "get_doc"

// GetDoc fetches one document from the collection index by id. It is the
// handler behind the opaque selector commands attached to options messages.
type GetDoc struct {
	engine retrieval.Engine
}

// NewGetDoc creates the get_doc command handler.
func NewGetDoc(engine retrieval.Engine) *GetDoc {
	return &GetDoc{engine: engine}
}

func (c *GetDoc) Name() string            { return GetDocCommand }
func (c *GetDoc) Kind() domain.ActionKind { return domain.ActionGetDoc }

func (c *GetDoc) Run(ctx context.Context, conv domain.Conversation, arg string) (domain.ResultList, error) {
	if arg == "" {
		return nil, fmt.Errorf("%s: missing document id", GetDocCommand)
	}
	doc, err := c.engine.GetDoc(ctx, arg)
	if err != nil {
		return nil, err
	}
	return domain.ResultList{doc}, nil
}
