package action

import (
	"context"
	"errors"
	"testing"

	"seekbot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEngine is a canned retrieval.Engine.
type stubEngine struct {
	results   domain.ResultList
	doc       domain.Document
	err       error
	lastQuery string
}

func (e *stubEngine) Retrieve(_ context.Context, query string, _ int) (domain.ResultList, error) {
	e.lastQuery = query
	return e.results, e.err
}

func (e *stubEngine) GetDoc(_ context.Context, id string) (domain.Document, error) {
	if e.err != nil {
		return domain.Document{}, e.err
	}
	return e.doc, nil
}

// stubModel is a canned mrc.Model.
type stubModel struct {
	answers     domain.ResultList
	err         error
	lastPassage string
}

func (m *stubModel) Answer(_ context.Context, _, passage string, _ int) (domain.ResultList, error) {
	m.lastPassage = passage
	return m.answers, m.err
}

func conversation(text string) domain.Conversation {
	return domain.NewConversation(domain.NewInbound("test", "u1", text), nil)
}

func TestRetrieval_Run(t *testing.T) {
	engine := &stubEngine{results: domain.ResultList{{ID: "1", Title: "doc"}}}
	a := NewRetrieval(engine, stubQuery("go channels"), 3)

	out, err := a.Run(context.Background(), conversation("how do go channels work?"))
	require.NoError(t, err)
	assert.Equal(t, engine.results, out)
	assert.Equal(t, "go channels", engine.lastQuery)
}

func TestRetrieval_EmptyQuerySkipsEngine(t *testing.T) {
	engine := &stubEngine{err: errors.New("should never be called")}
	a := NewRetrieval(engine, stubQuery(""), 3)

	out, err := a.Run(context.Background(), conversation("the a an"))
	require.NoError(t, err)
	assert.Nil(t, out)
}

// stubQuery is a fixed-output query generation.
type stubQuery string

func (q stubQuery) Query(_ domain.Conversation) string { return string(q) }

func TestQA_EligibleOnlyForQuestions(t *testing.T) {
	a := NewQA(NewRetrieval(&stubEngine{}, stubQuery("x"), 3), &stubModel{}, 3)

	assert.True(t, a.Eligible(conversation("what is a mutex?")))
	assert.False(t, a.Eligible(conversation("tell me about mutexes")))
}

func TestQA_UsesFirstNonEmptyPassage(t *testing.T) {
	engine := &stubEngine{results: domain.ResultList{
		{ID: "1", Text: "   "},
		{ID: "2", Text: "a mutex serializes access"},
	}}
	model := &stubModel{answers: domain.ResultList{{ID: "answer:0", Text: "a lock"}}}
	a := NewQA(NewRetrieval(engine, stubQuery("mutex"), 3), model, 3)

	out, err := a.Run(context.Background(), conversation("what is a mutex?"))
	require.NoError(t, err)
	assert.Equal(t, model.answers, out)
	assert.Equal(t, "a mutex serializes access", model.lastPassage)
}

func TestQA_NoPassageNoAnswer(t *testing.T) {
	engine := &stubEngine{results: nil}
	model := &stubModel{answers: domain.ResultList{{Text: "should not appear"}}}
	a := NewQA(NewRetrieval(engine, stubQuery("mutex"), 3), model, 3)

	out, err := a.Run(context.Background(), conversation("what is a mutex?"))
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Empty(t, model.lastPassage, "model must not be called without a passage")
}

func TestGetDoc_Run(t *testing.T) {
	engine := &stubEngine{doc: domain.Document{ID: "7", Title: "t", Text: "body"}}
	c := NewGetDoc(engine)

	out, err := c.Run(context.Background(), conversation("#get_doc 7"), "7")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "body", out[0].Text)
}

func TestGetDoc_MissingArg(t *testing.T) {
	c := NewGetDoc(&stubEngine{})

	_, err := c.Run(context.Background(), conversation("#get_doc"), "")
	require.Error(t, err)
}

func TestGetDoc_EngineError(t *testing.T) {
	c := NewGetDoc(&stubEngine{err: errors.New("document \"404\" not found")})

	_, err := c.Run(context.Background(), conversation("#get_doc 404"), "404")
	require.Error(t, err)
}
