package chat

import (
	"strings"

	"github.com/onnwee/quote-tender/backend/quote"
)

// Command is the lexical form of a chat command message: the primary command
// token (one word, or two when the second word is a reserved subcommand of
// the generic quote command), the first argument word, and the raw trailing
// text with its original spacing.
type Command struct {
	Name     string
	FirstArg string
	RawInput string
}

// ParseCommand splits a chat message into its command form. It reports false
// for messages that are not commands (no leading '!').
func ParseCommand(message string) (Command, bool) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" || trimmed[0] != '!' {
		return Command{}, false
	}
	words := strings.Split(trimmed, " ")
	name := words[0]
	rest := words[1:]
	// "!quote add ..." is the two-word spelling of the dedicated add
	// command; promote the subcommand into the command token so the router
	// sees the alias form.
	if strings.EqualFold(name, "!quote") && len(rest) > 0 && quote.IsSubcommand(rest[0]) {
		name = name + " " + rest[0]
		rest = rest[1:]
	}
	c := Command{Name: name, RawInput: strings.Join(rest, " ")}
	if len(rest) > 0 {
		c.FirstArg = rest[0]
	}
	return c, true
}

// mentionCandidate picks the word the platform should try to resolve as a
// mentioned user: the first explicitly marked "@word", falling back to the
// first word of the trailing text when there are at least two words.
func mentionCandidate(rawInput string) string {
	words := strings.Split(rawInput, " ")
	for _, w := range words {
		if len(w) > 1 && w[0] == '@' {
			return strings.TrimPrefix(w, "@")
		}
	}
	if len(words) > 1 && words[0] != "" && words[0][0] != '^' {
		return words[0]
	}
	return ""
}
