// Package channel adapts the Telegram gateway to the engine: it feeds inbound
// message events to a handler and exposes the outbound actions the engine
// requests (reply, delete, post, pin, admin check).
package channel

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-pkgz/lgr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/tannerhq/onewordbot/internal/bot"
	"github.com/tannerhq/onewordbot/internal/config"
)

const maxConcurrentHandlers = 8

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetSelf() tgbotapi.User
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// tgBotWrapper wraps tgbotapi.BotAPI to implement TelegramBot interface
type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return w.bot.GetUpdatesChan(config)
}

func (w *tgBotWrapper) StopReceivingUpdates() {
	w.bot.StopReceivingUpdates()
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return w.bot.Request(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

func (w *tgBotWrapper) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	return w.bot.GetChatMember(config)
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

// defaultBotFactory creates real telegram bot
var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	b, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: b}, nil
}

// TelegramChannel connects the bot account to Telegram via long polling.
// OnMessage is invoked for every inbound message; set it before Start.
type TelegramChannel struct {
	OnMessage func(ctx context.Context, msg bot.Message)

	token      string
	proxy      string
	admins     map[int64]bool
	bot        TelegramBot
	cancel     context.CancelFunc
	botFactory BotFactory
}

func NewTelegramChannel(cfg config.TelegramConfig, admins []int64) (*TelegramChannel, error) {
	return NewTelegramChannelWithFactory(cfg, admins, defaultBotFactory)
}

// NewTelegramChannelWithFactory creates a TelegramChannel with custom bot factory (for testing)
func NewTelegramChannelWithFactory(cfg config.TelegramConfig, admins []int64, factory BotFactory) (*TelegramChannel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	ch := &TelegramChannel{
		token:      cfg.Token,
		proxy:      cfg.Proxy,
		admins:     make(map[int64]bool, len(admins)),
		botFactory: factory,
	}
	for _, id := range admins {
		ch.admins[id] = true
	}
	return ch, nil
}

func (t *TelegramChannel) initBot() error {
	var client *http.Client
	if t.proxy != "" {
		proxyURL, err := url.Parse(t.proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	} else {
		client = http.DefaultClient
	}

	b, err := t.botFactory(t.token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	t.bot = b
	lgr.Printf("[INFO] [telegram] authorized as @%s", b.GetSelf().UserName)
	return nil
}

func (t *TelegramChannel) Start(ctx context.Context) error {
	if err := t.initBot(); err != nil {
		return err
	}

	ctx, t.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	// updates for different users arrive on one channel but handlers may
	// block on gateway calls, so dispatch them concurrently with a cap
	go func() {
		var grp errgroup.Group
		grp.SetLimit(maxConcurrentHandlers)
		for {
			select {
			case update := <-updates:
				if update.Message == nil {
					continue
				}
				msg := update.Message
				grp.Go(func() error {
					t.handleMessage(ctx, msg)
					return nil
				})
			case <-ctx.Done():
				_ = grp.Wait()
				return
			}
		}
	}()

	lgr.Printf("[INFO] [telegram] polling started")
	return nil
}

func (t *TelegramChannel) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if t.OnMessage == nil || msg.From == nil {
		return
	}

	t.OnMessage(ctx, bot.Message{
		ChatID:    msg.Chat.ID,
		MessageID: int64(msg.MessageID),
		SenderID:  msg.From.ID,
		FromBot:   msg.From.IsBot,
		Text:      msg.Text,
	})
}

func (t *TelegramChannel) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	lgr.Printf("[INFO] [telegram] stopped")
	return nil
}

// SetBot sets the bot (for testing)
func (t *TelegramChannel) SetBot(b TelegramBot) {
	t.bot = b
}

// Reply sends a plain-text reply to a specific message.
func (t *TelegramChannel) Reply(_ context.Context, chatID, messageID int64, text string) error {
	if t.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyToMessageID = int(messageID)
	if _, err := t.bot.Send(m); err != nil {
		return fmt.Errorf("send telegram reply: %w", err)
	}
	return nil
}

// Delete removes a message from the chat.
func (t *TelegramChannel) Delete(_ context.Context, chatID, messageID int64) error {
	if t.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, int(messageID))); err != nil {
		return fmt.Errorf("delete telegram message: %w", err)
	}
	return nil
}

// Post publishes a titled block as an HTML-formatted message and returns the
// posted message's ID. Bodies longer than Telegram's per-message limit are
// split; the returned ID is the first part's, which is the one worth pinning.
func (t *TelegramChannel) Post(_ context.Context, chatID int64, title, body string) (int64, error) {
	if t.bot == nil {
		return 0, fmt.Errorf("telegram bot not initialized")
	}

	content := "<b>" + html.EscapeString(title) + "</b>\n" + html.EscapeString(body)

	// Telegram has a 4096 char limit per message
	const maxLen = 4000
	firstID := int64(0)
	for len(content) > 0 {
		chunk := content
		if len(chunk) > maxLen {
			// Try to split at last space before maxLen
			idx := strings.LastIndex(chunk[:maxLen], " ")
			if idx > 0 {
				chunk = chunk[:idx]
			} else {
				chunk = chunk[:maxLen]
			}
		}
		content = strings.TrimPrefix(content[len(chunk):], " ")

		m := tgbotapi.NewMessage(chatID, chunk)
		m.ParseMode = tgbotapi.ModeHTML
		sent, err := t.bot.Send(m)
		if err != nil {
			return 0, fmt.Errorf("post telegram message: %w", err)
		}
		if firstID == 0 {
			firstID = int64(sent.MessageID)
		}
	}
	return firstID, nil
}

// Pin pins a message in the chat without notifying members.
func (t *TelegramChannel) Pin(_ context.Context, chatID, messageID int64) error {
	if t.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	_, err := t.bot.Request(tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           int(messageID),
		DisableNotification: true,
	})
	if err != nil {
		return fmt.Errorf("pin telegram message: %w", err)
	}
	return nil
}

// IsAdmin reports whether the user may change settings: either listed in the
// bootstrap admin allow-list or holding administrator/creator status in the
// chat.
func (t *TelegramChannel) IsAdmin(_ context.Context, chatID, userID int64) (bool, error) {
	if t.admins[userID] {
		return true, nil
	}
	if t.bot == nil {
		return false, fmt.Errorf("telegram bot not initialized")
	}

	member, err := t.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}
	return member.IsCreator() || member.IsAdministrator(), nil
}
