package chat

import "strings"

// Command is a reserved message handled without calling the model.
type Command int

const (
	CommandNone Command = iota
	CommandShowHistory
	CommandDeleteHistory
)

var commandPhrases = map[Command]string{
	CommandShowHistory:   "show conversation history",
	CommandDeleteHistory: "delete conversation history",
}

func (c Command) String() string {
	if p, ok := commandPhrases[c]; ok {
		return p
	}
	return "none"
}

// ParseCommand matches a trimmed message against the reserved phrases,
// ignoring case. Anything else is CommandNone.
func ParseCommand(msg string) Command {
	msg = strings.TrimSpace(msg)
	for c, p := range commandPhrases {
		if strings.EqualFold(msg, p) {
			return c
		}
	}
	return CommandNone
}

// IsCorrection reports whether msg contains any of the phrases, ignoring case.
func IsCorrection(msg string, phrases []string) bool {
	lower := strings.ToLower(msg)
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
