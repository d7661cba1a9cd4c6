package retrieval

import (
	"context"
	"testing"
	"time"

	"seekbot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleQueryGeneration_CurrentTurnOnly(t *testing.T) {
	conv := domain.NewConversation(domain.NewInbound("test", "u1", "What is the capital of France?"), nil)

	q := SimpleQueryGeneration{}.Query(conv)
	assert.Equal(t, "what capital france", q)
}

func TestSimpleQueryGeneration_StripsPunctuationAndStopwords(t *testing.T) {
	conv := domain.NewConversation(domain.NewInbound("test", "u1", "Tell me about go-routines, please!"), nil)

	q := SimpleQueryGeneration{}.Query(conv)
	assert.Equal(t, "go routines", q)
}

func TestSimpleQueryGeneration_FoldsHistoryTurns(t *testing.T) {
	older := domain.NewInbound("test", "u1", "garbage collection")
	req := domain.NewInbound("test", "u1", "latency tuning")
	sys, err := domain.NewResponse(older, "some reply", domain.MsgInfo{Type: domain.MsgTypeText}, older.Timestamp.Add(time.Second))
	require.NoError(t, err)

	// History is most-recent-first; system turns and commands are skipped.
	cmd := domain.NewInbound("test", "u1", "#get_doc 3")
	conv := domain.NewConversation(req, []domain.Message{sys, cmd, older})

	q := SimpleQueryGeneration{HistoryTurns: 1}.Query(conv)
	assert.Equal(t, "latency tuning garbage collection", q)
}

func TestSimpleQueryGeneration_HistoryDisabledByDefault(t *testing.T) {
	older := domain.NewInbound("test", "u1", "garbage collection")
	req := domain.NewInbound("test", "u1", "latency tuning")
	conv := domain.NewConversation(req, []domain.Message{older})

	q := SimpleQueryGeneration{}.Query(conv)
	assert.Equal(t, "latency tuning", q)
}

func TestDuckDuckGo_GetDocUnsupported(t *testing.T) {
	d := NewDuckDuckGo()
	_, err := d.GetDoc(context.Background(), "any")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}

func TestFtsMatchExpr(t *testing.T) {
	assert.Equal(t, `"go" OR "channels"`, ftsMatchExpr("go channels"))
	assert.Equal(t, "", ftsMatchExpr("   "))
	// Embedded quotes cannot break out of the term.
	assert.Equal(t, `"drop" OR "table"`, ftsMatchExpr(`dr"op ta"ble`))
}
