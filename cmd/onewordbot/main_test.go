package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tannerhq/onewordbot/internal/config"
)

func TestRunOnboard_CreatesConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ONEWORD_TELEGRAM_TOKEN", "")
	t.Setenv("ONEWORD_DATA_DIR", "")

	if err := runOnboard(nil, nil); err != nil {
		t.Fatalf("runOnboard error: %v", err)
	}

	if _, err := os.Stat(config.ConfigPath()); err != nil {
		t.Errorf("config not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(config.ConfigDir(), "data")); err != nil {
		t.Errorf("data dir not created: %v", err)
	}

	// second run must be idempotent
	if err := runOnboard(nil, nil); err != nil {
		t.Fatalf("second runOnboard error: %v", err)
	}
}

func TestRunStatus_NoConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ONEWORD_TELEGRAM_TOKEN", "")
	t.Setenv("ONEWORD_DATA_DIR", "")

	if err := runStatus(nil, nil); err != nil {
		t.Fatalf("runStatus error: %v", err)
	}
}

func TestRunBot_NoToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ONEWORD_TELEGRAM_TOKEN", "")

	if err := runBot(nil, nil); err == nil {
		t.Error("expected error when token is missing")
	}
}
