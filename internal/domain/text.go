package domain

import "strings"

// CommandPrefix is the reserved marker that makes a turn a command.
const CommandPrefix = "#"

// interrogatives are the leading words that mark a turn as a question.
// This list is the single source of truth for the question heuristic; both
// QA eligibility and output selection go through IsQuestion.
var interrogatives = []string{"what", "who", "when", "where", "how", "which", "why"}

// IsQuestion reports whether the turn text looks like a question: it ends
// with a question mark or begins with an interrogative word.
func IsQuestion(text string) bool {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return false
	}
	if strings.HasSuffix(text, "?") {
		return true
	}
	first, _, _ := strings.Cut(text, " ")
	for _, w := range interrogatives {
		if first == w {
			return true
		}
	}
	return false
}

// IsCommandText reports whether raw input text is a command.
func IsCommandText(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), CommandPrefix)
}
