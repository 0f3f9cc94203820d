// Package story reconstructs the accumulated story text from recent channel
// history. History arrives newest-first (which is also how the terminator rule
// is evaluated), so chunks are collected backward and reversed before joining.
package story

// Terminator ends a story: a message whose entire text is this token both
// triggers aggregation and, when found in history, marks where the previous
// story stopped.
const Terminator = "."

const (
	// MaxMessages bounds how far back a single aggregation run looks.
	MaxMessages = 250
	// MaxChunkChars bounds one output block's body, separators included.
	MaxChunkChars = 4096

	titleFirst     = "Story so far"
	titleContinued = "continued"
)

// Message is one entry of channel history, newest-first.
type Message struct {
	ID      int64
	Text    string
	FromBot bool
}

// Block is one emitted transcript section.
type Block struct {
	Title string
	Body  string
}

// Build walks history (newest-first) and produces ordered output blocks. It
// stops at the first Terminator message, skips bot-authored entries, and
// flushes a block whenever adding the next message would push the running
// character budget past MaxChunkChars. The first flushed block is titled
// "Story so far", later ones "continued". An empty final chunk emits nothing.
func Build(history []Message) []Block {
	var blocks []Block
	var chunk []string
	charCount := 0
	title := titleFirst

	for _, m := range history {
		if m.Text == Terminator {
			break
		}
		if m.FromBot {
			continue
		}

		charCount += len(m.Text) + 1 // +1 for the joining space
		if charCount > MaxChunkChars {
			if len(chunk) > 0 {
				blocks = append(blocks, flush(chunk, title))
			}
			charCount = len(m.Text)
			chunk = []string{m.Text}
			title = titleContinued
			continue
		}

		chunk = append(chunk, m.Text)
	}

	if len(chunk) > 0 {
		blocks = append(blocks, flush(chunk, title))
	}
	return blocks
}

// flush reverses the backward-collected chunk into chronological order and
// joins it with single spaces.
func flush(chunk []string, title string) Block {
	body := make([]byte, 0, MaxChunkChars)
	for i := len(chunk) - 1; i >= 0; i-- {
		if len(body) > 0 {
			body = append(body, ' ')
		}
		body = append(body, chunk[i]...)
	}
	return Block{Title: title, Body: string(body)}
}
