// Package history is the channel-history collaborator. The chat gateway used
// here cannot fetch past messages on demand, so the bot keeps its own bounded
// log of accepted messages and answers history queries from it, most-recent
// first.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/tannerhq/onewordbot/internal/story"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	chat_id    INTEGER NOT NULL,
	message_id INTEGER NOT NULL,
	text       TEXT    NOT NULL,
	from_bot   INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT (datetime('now')),
	PRIMARY KEY (chat_id, message_id)
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_order ON messages (chat_id, message_id DESC);
`

// Store is a SQLite-backed log of recent channel messages.
type Store struct {
	db *sqlx.DB
}

// New opens (or creates) the history database at path.
func New(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_txlock=immediate", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record appends one message to the log. Re-recording the same (chat, message)
// pair is a no-op so delivery retries stay idempotent.
func (s *Store) Record(ctx context.Context, chatID int64, messageID int64, text string, fromBot bool) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `INSERT OR IGNORE INTO messages (chat_id, message_id, text, from_bot) VALUES (?, ?, ?, ?)`
		_, err := s.db.ExecContext(ctx, query, chatID, messageID, text, boolToInt(fromBot))
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("record message: %w", err)}
		}
		return nil
	})
}

// FetchBefore returns up to limit messages of the chat with IDs strictly below
// beforeID, newest first. Fewer (or no) rows is not an error.
func (s *Store) FetchBefore(ctx context.Context, chatID int64, beforeID int64, limit int) ([]story.Message, error) {
	var rows []struct {
		MessageID int64  `db:"message_id"`
		Text      string `db:"text"`
		FromBot   int    `db:"from_bot"`
	}

	query := `
		SELECT message_id, text, from_bot
		FROM messages
		WHERE chat_id = ? AND message_id < ?
		ORDER BY message_id DESC
		LIMIT ?
	`
	if err := s.db.SelectContext(ctx, &rows, query, chatID, beforeID, limit); err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	msgs := make([]story.Message, len(rows))
	for i, r := range rows {
		msgs[i] = story.Message{ID: r.MessageID, Text: r.Text, FromBot: r.FromBot != 0}
	}
	return msgs, nil
}

// Prune drops everything but the keep most recent messages of the chat.
func (s *Store) Prune(ctx context.Context, chatID int64, keep int) error {
	query := `
		DELETE FROM messages
		WHERE chat_id = ? AND message_id NOT IN (
			SELECT message_id FROM messages WHERE chat_id = ? ORDER BY message_id DESC LIMIT ?
		)
	`
	if _, err := s.db.ExecContext(ctx, query, chatID, chatID, keep); err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// criticalError signals the retrier to stop retrying.
type criticalError struct {
	err error
}

func (e *criticalError) Error() string {
	return e.err.Error()
}

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
