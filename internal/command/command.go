// Package command parses the plain-text admin protocol embedded in chat
// messages: `one-word <set-channel|ban|unban> <argument>`.
package command

import (
	"errors"
	"strconv"
	"strings"
)

// Prefix marks a message as an admin directive rather than a story word.
const Prefix = "one-word"

var (
	ErrUsage          = errors.New("Usage: one-word <set-channel|ban|unban> <arg>")
	ErrInvalidCommand = errors.New("Invalid command")
	ErrInvalidChannel = errors.New("Invalid channel")
)

type Kind int

const (
	KindSetChannel Kind = iota
	KindBan
	KindUnban
)

// Command is a parsed admin directive. Exactly one of ChannelID or Word is
// meaningful, depending on Kind.
type Command struct {
	Kind      Kind
	ChannelID int64
	Word      string
}

// Parse interprets text as an admin directive. ok is false when the text does
// not carry the command prefix at all, in which case the message falls through
// to moderation. When ok is true, err carries the user-facing parse failure if
// the directive is malformed.
func Parse(text string) (cmd Command, ok bool, err error) {
	if !strings.HasPrefix(text, Prefix) {
		return Command{}, false, nil
	}

	words := strings.Fields(text)
	if len(words) < 3 {
		return Command{}, true, ErrUsage
	}

	arg := words[2]

	switch strings.ToLower(words[1]) {
	case "set-channel":
		raw := strings.ReplaceAll(arg, "<#", "")
		raw = strings.ReplaceAll(raw, ">", "")
		id, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil {
			return Command{}, true, ErrInvalidChannel
		}
		return Command{Kind: KindSetChannel, ChannelID: int64(id)}, true, nil
	case "ban":
		return Command{Kind: KindBan, Word: arg}, true, nil
	case "unban":
		return Command{Kind: KindUnban, Word: arg}, true, nil
	default:
		return Command{}, true, ErrInvalidCommand
	}
}
