// Package grading turns a learner's typed translation or spoken attempt into
// a structured verdict.
//
// Three graders implement [Grader]:
//
//   - [Remote] asks a chat-completion backend and extracts the JSON verdict
//     embedded in its reply.
//   - [Heuristic] answers locally from a small bilingual dictionary and a
//     phonetic comparison. It never fails.
//   - [Mock] returns canned verdicts for offline play and tests.
//
// [Service] ties them together per game session. It owns the grade cache,
// enforces the call deadline and applies the configured fallback [Policy].
package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies what is being graded.
type Kind string

const (
	KindTranslation   Kind = "translation"
	KindPronunciation Kind = "pronunciation"
)

// TranslationResult is the verdict on a typed translation.
type TranslationResult struct {
	Correct      bool     `json:"correct"`
	Explanation  string   `json:"explanation"`
	Alternatives []string `json:"alternatives"`
	Tips         string   `json:"tips"`
}

// PronunciationResult is the verdict on one spoken attempt. All scores are
// in 0..100.
type PronunciationResult struct {
	Accuracy      int    `json:"accuracy"`
	Clarity       int    `json:"clarity"`
	PhoneticMatch int    `json:"phoneticMatch"`
	OverallScore  int    `json:"overallScore"`
	Feedback      string `json:"feedback"`
	Tips          string `json:"tips"`
}

// clamp forces every score into 0..100.
func (r PronunciationResult) clamp() PronunciationResult {
	r.Accuracy = clampScore(r.Accuracy)
	r.Clarity = clampScore(r.Clarity)
	r.PhoneticMatch = clampScore(r.PhoneticMatch)
	r.OverallScore = clampScore(r.OverallScore)
	return r
}

func clampScore(v int) int {
	return min(max(v, 0), 100)
}

// Grader grades one learner input. Implementations must be safe for
// concurrent use.
type Grader interface {
	// GradeTranslation judges whether text is a correct Spanish translation
	// of the English word.
	GradeTranslation(ctx context.Context, word, text string) (TranslationResult, error)

	// GradePronunciation scores how well spoken (a recognizer transcript
	// with confidence in percent) matches word.
	GradePronunciation(ctx context.Context, word, spoken string, confidence int) (PronunciationResult, error)
}

// Key identifies a grading request in the cache.
type Key struct {
	Kind  Kind
	Word  string
	Input string
}

// NewKey builds the cache key for a request. Input is case-folded and
// trimmed so that "La Casa " and "la casa" share an entry.
func NewKey(kind Kind, word, input string) Key {
	return Key{
		Kind:  kind,
		Word:  word,
		Input: strings.ToLower(strings.TrimSpace(input)),
	}
}

// Class categorises a remote grading failure.
type Class string

const (
	// ClassTimeout means the call deadline fired before a verdict arrived.
	ClassTimeout Class = "timeout"
	// ClassTransport covers connection failures and 404 responses: the
	// backend is unreachable at the configured address.
	ClassTransport Class = "transport"
	// ClassStatus is any other non-2xx response.
	ClassStatus Class = "status"
	// ClassParse means the reply carried no usable JSON verdict.
	ClassParse Class = "parse"
	// ClassUnavailable means no backend would take the call (open circuit,
	// full bulkhead, missing credential).
	ClassUnavailable Class = "unavailable"
)

// Error is returned by [Service] when a remote grade fails and the policy
// does not allow a local answer.
type Error struct {
	Kind  Kind
	Class Class
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("grading: %s %s failure: %v", e.Kind, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorClass reports the [Class] of err, or "" when err is not a [*Error].
func ErrorClass(err error) Class {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Class
	}
	return ""
}
