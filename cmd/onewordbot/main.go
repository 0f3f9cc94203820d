package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-pkgz/lgr"
	"github.com/spf13/cobra"

	"github.com/tannerhq/onewordbot/internal/config"
	"github.com/tannerhq/onewordbot/internal/gateway"
	"github.com/tannerhq/onewordbot/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "onewordbot",
	Short: "onewordbot - one-word-at-a-time collaborative story moderator",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Telegram and moderate the story channel",
	RunE:  runBot,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directory",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show onewordbot status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(runCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLog(dbg bool, secrets ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = append(logOpts, lgr.Debug, lgr.CallerFile, lgr.CallerFunc)
	}
	if len(secrets) > 0 {
		logOpts = append(logOpts, lgr.Secret(secrets...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not set. Run 'onewordbot onboard' or set ONEWORD_TELEGRAM_TOKEN")
	}

	setupLog(cfg.Debug, cfg.Telegram.Token)

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDirPath(), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	fmt.Printf("Data directory ready: %s\n", cfg.DataDirPath())

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your bot token\n", cfgPath)
	fmt.Println("  2. Or set ONEWORD_TELEGRAM_TOKEN environment variable")
	fmt.Println("  3. Run 'onewordbot run' and send 'one-word set-channel <id>' as an admin")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	if cfg.Telegram.Token != "" && len(cfg.Telegram.Token) > 8 {
		masked := cfg.Telegram.Token[:4] + "..." + cfg.Telegram.Token[len(cfg.Telegram.Token)-4:]
		fmt.Printf("Telegram token: %s\n", masked)
	} else if cfg.Telegram.Token != "" {
		fmt.Println("Telegram token: set")
	} else {
		fmt.Println("Telegram token: not set")
	}
	fmt.Printf("Admins: %d listed\n", len(cfg.Admins))
	fmt.Printf("Digest: enabled=%v schedule=%q\n", cfg.Digest.Enabled, cfg.Digest.Schedule)
	fmt.Printf("Data: %s\n", cfg.DataDirPath())

	st := store.Open(store.NewFilePersister(cfg.SettingsPath()))
	settings := st.Settings()
	if settings.ChannelID == 0 {
		fmt.Println("Story channel: not set")
	} else {
		fmt.Printf("Story channel: %d\n", settings.ChannelID)
	}
	fmt.Printf("Banned words: %d\n", len(settings.BannedWords))

	return nil
}
