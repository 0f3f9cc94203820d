// Package bot contains the moderation engine: it takes inbound message
// events, routes admin directives to the settings store, applies the
// one-word-at-a-time policy to everything else in the target channel, and
// publishes the reconstructed story when the trigger message appears.
package bot

import (
	"context"

	"github.com/go-pkgz/lgr"

	"github.com/tannerhq/onewordbot/internal/command"
	"github.com/tannerhq/onewordbot/internal/rules"
	"github.com/tannerhq/onewordbot/internal/store"
	"github.com/tannerhq/onewordbot/internal/story"
)

// Message is one inbound chat event as delivered by the gateway adapter.
type Message struct {
	ChatID    int64
	MessageID int64
	SenderID  int64
	FromBot   bool
	Text      string
}

// Actions is the outbound side of the gateway. Every call is best-effort from
// the engine's point of view: a failed delete or pin never invalidates the
// decision that requested it.
type Actions interface {
	Reply(ctx context.Context, chatID, messageID int64, text string) error
	Delete(ctx context.Context, chatID, messageID int64) error
	Post(ctx context.Context, chatID int64, title, body string) (int64, error)
	Pin(ctx context.Context, chatID, messageID int64) error
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

// History answers bounded queries over recent channel messages.
type History interface {
	Record(ctx context.Context, chatID, messageID int64, text string, fromBot bool) error
	FetchBefore(ctx context.Context, chatID, beforeID int64, limit int) ([]story.Message, error)
}

type Engine struct {
	store   *store.Store
	actions Actions
	history History
}

func New(st *store.Store, actions Actions, history History) *Engine {
	return &Engine{store: st, actions: actions, history: history}
}

// HandleMessage processes one inbound event. Safe for concurrent use: the
// settings store serializes mutations, and everything else is per-call state.
func (e *Engine) HandleMessage(ctx context.Context, msg Message) {
	if msg.FromBot {
		return
	}

	if cmd, ok, perr := command.Parse(msg.Text); ok {
		e.runCommand(ctx, msg, cmd, perr)
		return
	}

	settings, rs := e.store.Snapshot()
	if msg.ChatID != settings.ChannelID {
		return
	}

	if msg.Text == story.Terminator {
		if err := e.history.Record(ctx, msg.ChatID, msg.MessageID, msg.Text, false); err != nil {
			lgr.Printf("[WARN] [engine] record trigger message %d: %v", msg.MessageID, err)
		}
		e.PublishStory(ctx, msg.ChatID, msg.MessageID)
		return
	}

	if rules.Evaluate(msg.Text, rs) == rules.VerdictReject {
		if err := e.actions.Delete(ctx, msg.ChatID, msg.MessageID); err != nil {
			lgr.Printf("[WARN] [engine] delete message %d: %v", msg.MessageID, err)
		}
		return
	}

	if err := e.history.Record(ctx, msg.ChatID, msg.MessageID, msg.Text, false); err != nil {
		lgr.Printf("[WARN] [engine] record message %d: %v", msg.MessageID, err)
	}
}

// runCommand handles a parsed admin directive. Parse errors are echoed to
// anyone; state changes require the admin capability.
func (e *Engine) runCommand(ctx context.Context, msg Message, cmd command.Command, perr error) {
	if perr != nil {
		e.reply(ctx, msg, perr.Error())
		return
	}

	admin, err := e.actions.IsAdmin(ctx, msg.ChatID, msg.SenderID)
	if err != nil {
		lgr.Printf("[WARN] [engine] admin check for %d: %v", msg.SenderID, err)
	}
	if !admin {
		e.reply(ctx, msg, "Only admins are allowed to update settings.")
		return
	}

	switch cmd.Kind {
	case command.KindSetChannel:
		e.store.Mutate(ctx, func(s *store.Settings) { s.ChannelID = cmd.ChannelID })
	case command.KindBan:
		e.store.Mutate(ctx, func(s *store.Settings) { s.Ban(cmd.Word) })
	case command.KindUnban:
		e.store.Mutate(ctx, func(s *store.Settings) { s.Unban(cmd.Word) })
	}

	e.reply(ctx, msg, "Settings updated")
}

// PublishStory reconstructs the story from history strictly before beforeID
// and posts each block, pinning it. Posted blocks are recorded as bot messages
// so later aggregations skip them.
func (e *Engine) PublishStory(ctx context.Context, chatID, beforeID int64) {
	msgs, err := e.history.FetchBefore(ctx, chatID, beforeID, story.MaxMessages)
	if err != nil {
		lgr.Printf("[ERROR] [engine] fetch history for chat %d: %v", chatID, err)
		return
	}

	for _, block := range story.Build(msgs) {
		postedID, err := e.actions.Post(ctx, chatID, block.Title, block.Body)
		if err != nil {
			lgr.Printf("[WARN] [engine] post story block: %v", err)
			continue
		}
		if err := e.history.Record(ctx, chatID, postedID, block.Body, true); err != nil {
			lgr.Printf("[WARN] [engine] record story block %d: %v", postedID, err)
		}
		if err := e.actions.Pin(ctx, chatID, postedID); err != nil {
			lgr.Printf("[WARN] [engine] pin story block %d: %v", postedID, err)
		}
	}
}

func (e *Engine) reply(ctx context.Context, msg Message, text string) {
	if err := e.actions.Reply(ctx, msg.ChatID, msg.MessageID, text); err != nil {
		lgr.Printf("[WARN] [engine] reply to %d: %v", msg.MessageID, err)
	}
}
