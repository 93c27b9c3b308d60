package quote

import "strings"

// Action classifies what an invocation asks the quote database to do.
type Action int

const (
	// ActionNoop means no command matched; the invocation is silently
	// ignored and still reported as handled.
	ActionNoop Action = iota
	ActionAdd
	ActionDelete
	ActionEdit
	ActionGetRandom
	ActionGetID
	ActionSearch
	ActionHide
	// ActionCancel means a more specific command surface already claims
	// this invocation and the generic path must not double-handle it.
	ActionCancel
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionDelete:
		return "delete"
	case ActionEdit:
		return "edit"
	case ActionGetRandom:
		return "random"
	case ActionGetID:
		return "get_id"
	case ActionSearch:
		return "search"
	case ActionHide:
		return "hide"
	case ActionCancel:
		return "cancel"
	default:
		return "noop"
	}
}

// genericCommand is the dispatcher command whose first argument selects the
// operation.
const genericCommand = "!quote"

// subcommands are the reserved first-argument words of the generic command.
// Each also arrives through a dedicated alias, so the generic router yields
// (ActionCancel) rather than executing the side effect twice.
var subcommands = map[string]struct{}{
	"add":    {},
	"delete": {},
	"edit":   {},
	"get":    {},
	"hide":   {},
	"random": {},
	"search": {},
}

// aliases maps every dedicated command spelling onto its action.
var aliases = map[string]Action{
	"!addquote":     ActionAdd,
	"!quoteadd":     ActionAdd,
	"!quote add":    ActionAdd,
	"!delquote":     ActionDelete,
	"!quotedelete":  ActionDelete,
	"!quote delete": ActionDelete,
	"!editquote":    ActionEdit,
	"!quoteedit":    ActionEdit,
	"!quote edit":   ActionEdit,
	"!getquote":     ActionSearch,
	"!quoteget":     ActionSearch,
	"!quote get":    ActionSearch,
	"!searchquote":  ActionSearch,
	"!quotesearch":  ActionSearch,
	"!quote search": ActionSearch,
	"!randquote":    ActionGetRandom,
	"!quoterandom":  ActionGetRandom,
	"!quote random": ActionGetRandom,
	"!hidequote":    ActionHide,
	"!quotehide":    ActionHide,
	"!quote hide":   ActionHide,
}

// IsSubcommand reports whether word is a reserved subcommand of the generic
// quote command, case-insensitively.
func IsSubcommand(word string) bool {
	_, ok := subcommands[strings.ToLower(word)]
	return ok
}

// Route classifies an invocation from its primary command token and optional
// first argument word. Matching is case-insensitive. An empty command is a
// no-op; the caller logs that before routing.
func Route(command, firstArg string) Action {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if cmd == "" {
		return ActionNoop
	}
	if cmd == genericCommand {
		switch {
		case firstArg == "":
			return ActionGetRandom
		case isNumeric(firstArg):
			return ActionGetID
		case IsSubcommand(firstArg):
			return ActionCancel
		default:
			return ActionSearch
		}
	}
	if a, ok := aliases[cmd]; ok {
		return a
	}
	return ActionNoop
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
