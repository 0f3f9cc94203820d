package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pkgz/repeater/v2"
)

// FilePersister keeps settings as a JSON file, retrying transient write
// failures with backoff.
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load reads the saved settings. A missing file is not an error and returns
// nil settings so the caller falls back to defaults.
func (p *FilePersister) Load() (*Settings, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return &s, nil
}

// Save writes the settings to disk, creating the parent directory on first
// use.
func (p *FilePersister) Save(ctx context.Context, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	retrier := repeater.NewBackoff(3, 50*time.Millisecond, repeater.WithMaxDelay(time.Second))
	return retrier.Do(ctx, func() error {
		if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
		if err := os.WriteFile(p.path, data, 0o644); err != nil {
			return fmt.Errorf("write settings: %w", err)
		}
		return nil
	})
}
