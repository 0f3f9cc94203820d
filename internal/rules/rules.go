// Package rules holds the moderation policy for the story channel: an
// immutable RuleSet built from the banned-word list plus the stock profanity
// dictionary, and the verdict logic applied to every inbound message.
package rules

import (
	"strings"

	goaway "github.com/TwiN/go-away"
)

// RuleSet is an immutable filter snapshot. A new one is built on every
// configuration mutation; readers always see a fully constructed value.
type RuleSet struct {
	detector *goaway.ProfanityDetector
	banned   []string
}

// Build compiles a RuleSet from the custom banned words layered on top of the
// default profanity dictionary.
func Build(banned []string) *RuleSet {
	dict := make([]string, 0, len(goaway.DefaultProfanities)+len(banned))
	dict = append(dict, goaway.DefaultProfanities...)
	dict = append(dict, banned...)

	return &RuleSet{
		detector: goaway.NewProfanityDetector().
			WithCustomDictionary(dict, goaway.DefaultFalsePositives, goaway.DefaultFalseNegatives),
		banned: banned,
	}
}

// Matches reports whether text trips the banned-word filter.
func (r *RuleSet) Matches(text string) bool {
	return r.detector.IsProfane(text)
}

// Banned returns the custom banned words the set was built from.
func (r *RuleSet) Banned() []string {
	return r.banned
}

type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictReject
)

// Evaluate applies the one-word-at-a-time policy in order, short-circuiting
// on the first rule that matches:
//
//  1. more than 2 whitespace-separated tokens -> reject
//  2. exactly 2 tokens -> reject unless at least one token is <=2 chars,
//     which lets short connectives ride along with one real word
//  3. banned-word filter match -> reject
//
// Anything else is allowed.
func Evaluate(text string, rs *RuleSet) Verdict {
	words := strings.Fields(text)

	if len(words) > 2 {
		return VerdictReject
	}

	if len(words) == 2 && !(len(words[0]) <= 2 || len(words[1]) <= 2) {
		return VerdictReject
	}

	if rs.Matches(text) {
		return VerdictReject
	}

	return VerdictAllow
}
