// Package store owns the runtime settings of the bot: the target channel and
// the banned-word set, guarded by a readers-writer lock and published together
// with the rule set derived from them.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/tannerhq/onewordbot/internal/rules"
)

// Settings is the mutable configuration. BannedWords is kept sorted and
// unique; mutate only through Ban/Unban.
type Settings struct {
	ChannelID   int64    `json:"channelId"`
	BannedWords []string `json:"bannedWords"`
}

// Ban adds a word to the banned set, case-sensitive, ignoring duplicates.
func (s *Settings) Ban(word string) {
	i := sort.SearchStrings(s.BannedWords, word)
	if i < len(s.BannedWords) && s.BannedWords[i] == word {
		return
	}
	s.BannedWords = append(s.BannedWords, "")
	copy(s.BannedWords[i+1:], s.BannedWords[i:])
	s.BannedWords[i] = word
}

// Unban removes a word from the banned set if present.
func (s *Settings) Unban(word string) {
	i := sort.SearchStrings(s.BannedWords, word)
	if i < len(s.BannedWords) && s.BannedWords[i] == word {
		s.BannedWords = append(s.BannedWords[:i], s.BannedWords[i+1:]...)
	}
}

func (s Settings) clone() Settings {
	out := s
	out.BannedWords = append([]string(nil), s.BannedWords...)
	return out
}

// Persister durably stores settings between runs. Save is best-effort: the
// store never lets a persistence failure roll back or block the in-memory
// update.
type Persister interface {
	Load() (*Settings, error)
	Save(ctx context.Context, s Settings) error
}

const saveTimeout = 5 * time.Second

// Store is a versioned cell holding Settings plus the RuleSet derived from
// them. Reads are concurrent; each mutation swaps both values in a single
// exclusive critical section, so no reader ever observes a mismatched pair.
type Store struct {
	mu       sync.RWMutex
	settings Settings
	rules    *rules.RuleSet
	persist  Persister
}

// Open creates a Store, seeding it from the persister when a saved
// configuration exists and from zero-value defaults otherwise.
func Open(p Persister) *Store {
	st := &Store{persist: p}

	if p != nil {
		if loaded, err := p.Load(); err != nil {
			lgr.Printf("[WARN] [store] load saved settings: %v", err)
		} else if loaded != nil {
			st.settings = *loaded
			sort.Strings(st.settings.BannedWords)
		}
	}

	st.rules = rules.Build(st.settings.BannedWords)
	return st
}

// Settings returns a copy of the current configuration.
func (st *Store) Settings() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings.clone()
}

// Rules returns the current rule set snapshot.
func (st *Store) Rules() *rules.RuleSet {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.rules
}

// Snapshot returns the current configuration and the rule set that was built
// from it, guaranteed consistent with each other.
func (st *Store) Snapshot() (Settings, *rules.RuleSet) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings.clone(), st.rules
}

// Mutate applies fn to a copy of the settings, publishes the result together
// with a freshly built rule set, then hands the new value to the persister.
// The persistence call happens outside the lock so a slow or failing write
// never stalls readers; its failure is logged, not propagated.
func (st *Store) Mutate(ctx context.Context, fn func(*Settings)) Settings {
	st.mu.Lock()
	next := st.settings.clone()
	fn(&next)
	st.settings = next
	st.rules = rules.Build(next.BannedWords)
	st.mu.Unlock()

	if st.persist != nil {
		saveCtx, cancel := context.WithTimeout(ctx, saveTimeout)
		defer cancel()
		if err := st.persist.Save(saveCtx, next.clone()); err != nil {
			lgr.Printf("[WARN] [store] save settings: %v", err)
		}
	}

	return next.clone()
}
