package dispatcher

import (
	"context"
	"strings"

	"seekbot/internal/domain"
)

// Command is a built-in handler invoked synchronously for command turns.
// Name is the reserved-marker token (e.g. "#get_doc"); Kind is the
// candidate-output key its results are published under.
type Command interface {
	Name() string
	Kind() domain.ActionKind
	Run(ctx context.Context, conv domain.Conversation, arg string) (domain.ResultList, error)
}

// ParseCommand splits command text into its name (the first
// whitespace-delimited token) and a single string argument (the remainder).
func ParseCommand(text string) (name, arg string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
