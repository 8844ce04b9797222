// Package phonetic compares what a learner said (or typed) with what they
// were supposed to say, using Double Metaphone codes and Jaro-Winkler
// similarity from github.com/antzucaro/matchr.
//
// Two entry points exist:
//
//   - [Matcher.Similarity] scores a transcript against one target word. The
//     local pronunciation heuristic blends it with recognizer confidence.
//   - [Matcher.Closest] picks the most similar candidate from a list. The
//     local translation heuristic uses it to suggest the intended word when a
//     learner makes a near-miss spelling.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score a phonetically
// overlapping candidate needs in [Matcher.Closest]. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for candidates with
// no phonetic overlap in [Matcher.Closest]. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Result describes how close a transcript is to a target.
type Result struct {
	// SoundsAlike is true when at least one Double Metaphone code of the
	// transcript matches one of the target.
	SoundsAlike bool

	// Similarity is the best Jaro-Winkler score in [0, 1].
	Similarity float64
}

// Similarity compares spoken with target. Both are case-folded and trimmed.
// Empty input yields the zero Result.
func (m *Matcher) Similarity(spoken, target string) Result {
	spokenLower := strings.ToLower(strings.TrimSpace(spoken))
	targetLower := strings.ToLower(strings.TrimSpace(target))
	if spokenLower == "" || targetLower == "" {
		return Result{}
	}
	spokenTokens := strings.Fields(spokenLower)
	targetTokens := strings.Fields(targetLower)

	return Result{
		SoundsAlike: codesOverlap(codesForTokens(spokenTokens), codesForTokens(targetTokens)),
		Similarity:  bestJWScore(spokenTokens, targetTokens, spokenLower, targetLower),
	}
}

// Closest returns the candidate most similar to word. Candidates that sound
// alike are preferred over purely spelled-alike ones. ok is false when no
// candidate clears its threshold.
func (m *Matcher) Closest(word string, candidates []string) (best string, score float64, ok bool) {
	if strings.TrimSpace(word) == "" {
		return "", 0, false
	}

	var bestPhonetic bool
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		r := m.Similarity(word, c)
		switch {
		case r.SoundsAlike && r.Similarity >= m.phoneticThreshold:
			if !bestPhonetic || r.Similarity > score {
				best, score, bestPhonetic = c, r.Similarity, true
			}
		case !bestPhonetic && r.Similarity >= m.fuzzyThreshold && r.Similarity > score:
			best, score = c, r.Similarity
		}
	}
	return best, score, best != ""
}

// codesForTokens returns the union of the non-empty Double Metaphone codes of
// tokens.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore takes the maximum of the full-string score, the
// whitespace-stripped score and the best token pair. Recognizers often split
// or merge words ("to morrow" for "tomorrow").
func bestJWScore(aTokens, bTokens []string, aFull, bFull string) float64 {
	score := matchr.JaroWinkler(aFull, bFull, false)

	if len(aTokens) > 1 || len(bTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(aTokens, ""), strings.Join(bTokens, ""), false); s > score {
			score = s
		}
	}
	for _, at := range aTokens {
		for _, bt := range bTokens {
			if s := matchr.JaroWinkler(at, bt, false); s > score {
				score = s
			}
		}
	}
	return score
}
