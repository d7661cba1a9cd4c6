// Package retrieval provides the document retrieval engines and the query
// generation model that turns a conversation into a search query.
package retrieval

import (
	"context"
	"strings"
	"unicode"

	"seekbot/internal/domain"
)

// Engine is a pluggable search backend. GetDoc serves direct document
// fetches; engines without an addressable collection (e.g. web search)
// return domain.ErrUnsupported.
type Engine interface {
	Retrieve(ctx context.Context, query string, topK int) (domain.ResultList, error)
	GetDoc(ctx context.Context, id string) (domain.Document, error)
}

// QueryGeneration produces a retrieval query from a conversation.
type QueryGeneration interface {
	Query(conv domain.Conversation) string
}

// SimpleQueryGeneration uses the current turn's text as the query, with
// punctuation stripped and stopwords removed. When HistoryTurns > 0, that
// many prior user turns are appended for context.
type SimpleQueryGeneration struct {
	HistoryTurns int
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "do": true, "does": true, "did": true,
	"of": true, "to": true, "in": true, "on": true, "for": true, "at": true,
	"and": true, "or": true, "it": true, "me": true, "my": true, "you": true,
	"please": true, "tell": true, "about": true,
}

// Query implements QueryGeneration.
func (g SimpleQueryGeneration) Query(conv domain.Conversation) string {
	parts := []string{normalize(conv.Current().Text)}

	taken := 0
	for _, msg := range conv.History() {
		if taken >= g.HistoryTurns {
			break
		}
		if msg.Info.Source != domain.MsgSourceUser {
			continue
		}
		if msg.Info.Type != domain.MsgTypeText && msg.Info.Type != domain.MsgTypeVoice {
			continue
		}
		parts = append(parts, normalize(msg.Text))
		taken++
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// normalize lowercases, maps punctuation to spaces, and drops stopwords.
func normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	var kept []string
	for _, w := range strings.Fields(b.String()) {
		if !stopwords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
