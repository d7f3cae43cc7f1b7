package chat

import (
	"strings"
	"unicode"

	cerrors "tcpchat/internal/errors"
)

// Verb identifies a client request.
type Verb int

const (
	VerbMessage Verb = iota
	VerbNick
	VerbJoin
	VerbLeave
	VerbBye
	VerbPriv
)

var verbs = map[string]Verb{
	"/nick":  VerbNick,
	"/join":  VerbJoin,
	"/leave": VerbLeave,
	"/bye":   VerbBye,
	"/priv":  VerbPriv,
}

func (v Verb) String() string {
	for name, verb := range verbs {
		if verb == v {
			return name
		}
	}
	return "message"
}

// Command is one parsed client line.
type Command struct {
	Verb Verb
	// Arg is the nickname (/nick, /priv) or room name (/join).
	Arg string
	// Text is the chat body (messages, /priv), verbatim.
	Text string
}

// Parse turns one trimmed, non-empty line into a Command.
//
// The leading token must match a command name exactly and case
// sensitively.  Any other line starting with "/" is a chat message with
// that slash removed, so "//nick" sends the text "/nick".  Commands
// with the wrong number of arguments yield ErrMissingArgument.
func Parse(line string) (Command, error) {
	if !strings.HasPrefix(line, "/") {
		return message(line)
	}

	head, rest := cutField(line)
	verb, ok := verbs[head]
	if !ok {
		return message(line[1:])
	}

	switch verb {
	case VerbNick, VerbJoin:
		arg, extra := cutField(rest)
		if arg == "" || extra != "" {
			return Command{}, cerrors.ErrMissingArgument
		}
		return Command{Verb: verb, Arg: arg}, nil

	case VerbLeave, VerbBye:
		if rest != "" {
			return Command{}, cerrors.ErrMissingArgument
		}
		return Command{Verb: verb}, nil

	default: // VerbPriv
		target, text := cutField(rest)
		if target == "" || text == "" {
			return Command{}, cerrors.ErrMissingArgument
		}
		return Command{Verb: VerbPriv, Arg: target, Text: text}, nil
	}
}

func message(text string) (Command, error) {
	if strings.TrimSpace(text) == "" {
		return Command{}, cerrors.ErrEmptyMessage
	}
	return Command{Verb: VerbMessage, Text: text}, nil
}

// cutField splits s at its first run of whitespace.  rest keeps its
// inner spacing but loses the separating whitespace.
func cutField(s string) (field, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
