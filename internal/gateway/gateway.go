// Package gateway wires the bot together: settings store, history log,
// moderation engine, the Telegram channel adapter, and the optional scheduled
// digest. It owns process lifecycle and shutdown.
package gateway

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-pkgz/lgr"
	rcron "github.com/robfig/cron/v3"

	"github.com/tannerhq/onewordbot/internal/bot"
	"github.com/tannerhq/onewordbot/internal/channel"
	"github.com/tannerhq/onewordbot/internal/config"
	"github.com/tannerhq/onewordbot/internal/history"
	"github.com/tannerhq/onewordbot/internal/store"
)

// pruneSchedule keeps the history log bounded; runs off-peak.
const pruneSchedule = "30 3 * * *"

type Gateway struct {
	cfg     *config.Config
	store   *store.Store
	history *history.Store
	engine  *bot.Engine
	channel *channel.TelegramChannel
	cron    *rcron.Cron

	signalChan chan os.Signal // for testing
}

// Options for creating a Gateway
type Options struct {
	BotFactory channel.BotFactory
	SignalChan chan os.Signal // for testing signal handling
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg}

	g.store = store.Open(store.NewFilePersister(cfg.SettingsPath()))

	hist, err := history.New(context.Background(), cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	g.history = hist

	var ch *channel.TelegramChannel
	if opts.BotFactory != nil {
		ch, err = channel.NewTelegramChannelWithFactory(cfg.Telegram, cfg.Admins, opts.BotFactory)
	} else {
		ch, err = channel.NewTelegramChannel(cfg.Telegram, cfg.Admins)
	}
	if err != nil {
		_ = hist.Close()
		return nil, fmt.Errorf("create telegram channel: %w", err)
	}
	g.channel = ch

	g.engine = bot.New(g.store, ch, hist)
	ch.OnMessage = g.engine.HandleMessage

	g.cron = rcron.New()
	g.signalChan = opts.SignalChan

	return g, nil
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := g.channel.Start(ctx); err != nil {
		return fmt.Errorf("start telegram channel: %w", err)
	}

	if g.cfg.Digest.Enabled {
		if _, err := g.cron.AddFunc(g.cfg.Digest.Schedule, func() { g.postDigest(ctx) }); err != nil {
			lgr.Printf("[WARN] [gateway] digest schedule %q: %v", g.cfg.Digest.Schedule, err)
		} else {
			lgr.Printf("[INFO] [gateway] digest scheduled: %s", g.cfg.Digest.Schedule)
		}
	}
	if _, err := g.cron.AddFunc(pruneSchedule, func() { g.pruneHistory(ctx) }); err != nil {
		lgr.Printf("[WARN] [gateway] prune schedule: %v", err)
	}
	g.cron.Start()

	lgr.Printf("[INFO] [gateway] running")

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}

	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	lgr.Printf("[INFO] [gateway] shutting down...")
	return g.Shutdown()
}

// postDigest publishes the current story without a trigger message.
func (g *Gateway) postDigest(ctx context.Context) {
	settings := g.store.Settings()
	if settings.ChannelID == 0 {
		lgr.Printf("[DEBUG] [gateway] digest skipped: no target channel configured")
		return
	}
	lgr.Printf("[INFO] [gateway] posting scheduled digest to %d", settings.ChannelID)
	g.engine.PublishStory(ctx, settings.ChannelID, math.MaxInt64)
}

func (g *Gateway) pruneHistory(ctx context.Context) {
	settings := g.store.Settings()
	if settings.ChannelID == 0 {
		return
	}
	if err := g.history.Prune(ctx, settings.ChannelID, config.DefaultHistoryKeep); err != nil {
		lgr.Printf("[WARN] [gateway] prune history: %v", err)
	}
}

func (g *Gateway) Shutdown() error {
	g.cron.Stop()
	_ = g.channel.Stop()
	if err := g.history.Close(); err != nil {
		lgr.Printf("[WARN] [gateway] close history: %v", err)
	}
	lgr.Printf("[INFO] [gateway] shutdown complete")
	return nil
}
