package channel

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seekbot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoBus answers every published message synchronously through the
// registered outbound handler.
type echoBus struct {
	respond  func(in domain.Message) domain.Message
	handlers map[string]func(domain.Message)
}

func newEchoBus(respond func(domain.Message) domain.Message) *echoBus {
	return &echoBus{respond: respond, handlers: make(map[string]func(domain.Message))}
}

func (b *echoBus) Publish(msg domain.Message) {
	if h, ok := b.handlers[msg.Interface]; ok {
		h(b.respond(msg))
	}
}

func (b *echoBus) Subscribe() <-chan domain.Message      { return nil }
func (b *echoBus) SendOutbound(msg domain.Message)       {}
func (b *echoBus) OnOutbound(name string, h func(domain.Message)) {
	b.handlers[name] = h
}
func (b *echoBus) Close() {}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runBatch(t *testing.T, format, input string, respond func(domain.Message) domain.Message) string {
	t.Helper()
	dir := t.TempDir()
	inPath := filepath.Join(dir, "queries.tsv")
	outPath := filepath.Join(dir, "run.out")
	require.NoError(t, os.WriteFile(inPath, []byte(input), 0o644))

	f := NewFileio(FileioConfig{
		InputPath:  inPath,
		OutputPath: outPath,
		Format:     format,
		RunID:      "test-run",
		Logger:     testLogger(),
	})
	require.NoError(t, f.Start(context.Background(), newEchoBus(respond)))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	return string(data)
}

func textReply(in domain.Message) domain.Message {
	out, _ := domain.NewResponse(in, "answer to "+in.Text, domain.MsgInfo{Type: domain.MsgTypeText}, in.Timestamp.Add(1))
	return out
}

func TestFileio_TextFormat(t *testing.T) {
	got := runBatch(t, "text", "q1\tgo channels\nq2\tgo mutexes\n", textReply)

	lines := strings.Split(strings.TrimSpace(got), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "q1\tanswer to go channels", lines[0])
	assert.Equal(t, "q2\tanswer to go mutexes", lines[1])
}

func TestFileio_TrecFormat(t *testing.T) {
	respond := func(in domain.Message) domain.Message {
		out, _ := domain.NewResponse(in, "Retrieved document list (click to see the document content):", domain.MsgInfo{
			Type: domain.MsgTypeOptions,
			Options: []domain.Option{
				{Title: "first", Command: "#get_doc 11", Score: 2.5},
				{Title: "second", Command: "#get_doc 22", Score: 1.5},
			},
		}, in.Timestamp.Add(1))
		return out
	}

	got := runBatch(t, "trec", "q1\tgo channels\n", respond)

	lines := strings.Split(strings.TrimSpace(got), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "q1 Q0 11 1 2.500000 test-run", lines[0])
	assert.Equal(t, "q1 Q0 22 2 1.500000 test-run", lines[1])
}

func TestFileio_SkipsMalformedLines(t *testing.T) {
	got := runBatch(t, "text", "no-tab-here\nq1\tok\n\n", textReply)

	lines := strings.Split(strings.TrimSpace(got), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, "q1\tanswer to ok", lines[0])
}

func TestFileio_FlattensNewlinesInText(t *testing.T) {
	respond := func(in domain.Message) domain.Message {
		out, _ := domain.NewResponse(in, "line one\nline two", domain.MsgInfo{Type: domain.MsgTypeText}, in.Timestamp.Add(1))
		return out
	}

	got := runBatch(t, "text", "q1\tx\n", respond)
	assert.Equal(t, "q1\tline one line two\n", got)
}
