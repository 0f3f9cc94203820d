package channel

import (
	"context"
	"net/http"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tannerhq/onewordbot/internal/config"
)

type fakeBot struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	member    tgbotapi.ChatMember
	memberErr error
	nextID    int
}

func (f *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (f *fakeBot) StopReceivingUpdates() {}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requested = append(f.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "onewordbot", IsBot: true}
}

func (f *fakeBot) GetChatMember(tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	return f.member, f.memberErr
}

func newTestChannel(t *testing.T, admins []int64) (*TelegramChannel, *fakeBot) {
	t.Helper()
	fb := &fakeBot{}
	ch, err := NewTelegramChannelWithFactory(config.TelegramConfig{Token: "fake-token"}, admins,
		func(string, string, *http.Client) (TelegramBot, error) { return fb, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ch.SetBot(fb)
	return ch, fb
}

func TestNewTelegramChannel_NoToken(t *testing.T) {
	if _, err := NewTelegramChannel(config.TelegramConfig{}, nil); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestReply(t *testing.T) {
	ch, fb := newTestChannel(t, nil)

	if err := ch.Reply(context.Background(), 1, 10, "Settings updated"); err != nil {
		t.Fatalf("Reply error: %v", err)
	}
	if len(fb.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(fb.sent))
	}
	m, ok := fb.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want MessageConfig", fb.sent[0])
	}
	if m.Text != "Settings updated" || m.ReplyToMessageID != 10 {
		t.Errorf("got %+v, want reply to 10", m)
	}
}

func TestDelete(t *testing.T) {
	ch, fb := newTestChannel(t, nil)

	if err := ch.Delete(context.Background(), 1, 10); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if len(fb.requested) != 1 {
		t.Fatalf("requested %d, want 1", len(fb.requested))
	}
	d, ok := fb.requested[0].(tgbotapi.DeleteMessageConfig)
	if !ok {
		t.Fatalf("requested %T, want DeleteMessageConfig", fb.requested[0])
	}
	if d.MessageID != 10 || d.ChatID != 1 {
		t.Errorf("got %+v", d)
	}
}

func TestPost_TitleAndEscaping(t *testing.T) {
	ch, fb := newTestChannel(t, nil)

	id, err := ch.Post(context.Background(), 1, "Story so far", "a <b> & c")
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if id != 1 {
		t.Errorf("posted id = %d, want 1", id)
	}
	m := fb.sent[0].(tgbotapi.MessageConfig)
	if !strings.HasPrefix(m.Text, "<b>Story so far</b>\n") {
		t.Errorf("missing title header: %q", m.Text)
	}
	if !strings.Contains(m.Text, "a &lt;b&gt; &amp; c") {
		t.Errorf("body not escaped: %q", m.Text)
	}
	if m.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("parse mode = %q", m.ParseMode)
	}
}

func TestPost_SplitsLongBody(t *testing.T) {
	ch, fb := newTestChannel(t, nil)

	body := strings.Repeat("word ", 1200) // ~6000 chars
	id, err := ch.Post(context.Background(), 1, "Story so far", strings.TrimSpace(body))
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if len(fb.sent) < 2 {
		t.Fatalf("sent %d parts, want split", len(fb.sent))
	}
	if id != 1 {
		t.Errorf("returned id = %d, want first part's id", id)
	}
	for i, c := range fb.sent {
		m := c.(tgbotapi.MessageConfig)
		if len(m.Text) > 4000 {
			t.Errorf("part %d is %d chars, over the limit", i, len(m.Text))
		}
	}
}

func TestPin(t *testing.T) {
	ch, fb := newTestChannel(t, nil)

	if err := ch.Pin(context.Background(), 1, 42); err != nil {
		t.Fatalf("Pin error: %v", err)
	}
	p, ok := fb.requested[0].(tgbotapi.PinChatMessageConfig)
	if !ok {
		t.Fatalf("requested %T, want PinChatMessageConfig", fb.requested[0])
	}
	if p.MessageID != 42 || !p.DisableNotification {
		t.Errorf("got %+v", p)
	}
}

func TestIsAdmin_AllowList(t *testing.T) {
	ch, _ := newTestChannel(t, []int64{7})

	ok, err := ch.IsAdmin(context.Background(), 1, 7)
	if err != nil || !ok {
		t.Errorf("allow-listed user: ok=%v err=%v", ok, err)
	}
}

func TestIsAdmin_ChatStatus(t *testing.T) {
	ch, fb := newTestChannel(t, nil)

	fb.member = tgbotapi.ChatMember{Status: "administrator"}
	ok, err := ch.IsAdmin(context.Background(), 1, 9)
	if err != nil || !ok {
		t.Errorf("chat admin: ok=%v err=%v", ok, err)
	}

	fb.member = tgbotapi.ChatMember{Status: "member"}
	ok, err = ch.IsAdmin(context.Background(), 1, 9)
	if err != nil || ok {
		t.Errorf("plain member: ok=%v err=%v", ok, err)
	}
}
