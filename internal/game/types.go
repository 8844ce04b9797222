// Package game implements the Translate Blitz session: a word-by-word drill
// where the player first types the Spanish translation of an English word and
// then pronounces the English word, both under a countdown.
//
// [Session] is the synchronous state machine. It owns progress, the phase
// timer, attempt counts, the score and the error log, and it never blocks.
// [Runner] drives one Session from a single goroutine, serializing user
// input, timer ticks, grading results and display delays onto one control
// path, and reports everything through a [Presenter].
package game

import (
	"errors"
	"fmt"
	"time"
)

// Difficulty selects the per-phase time limit.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty validates s.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
}

// Status is the coarse lifecycle state of a [Session].
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
)

// Phase is the graded sub-task of the current word.
type Phase string

const (
	PhaseTranslation   Phase = "translation"
	PhasePronunciation Phase = "pronunciation"
)

// ErrorKind classifies an entry of the error log.
type ErrorKind string

const (
	KindTimeoutTranslation   ErrorKind = "timeout-translation"
	KindTimeoutPronunciation ErrorKind = "timeout-pronunciation"
	KindTranslationFailed    ErrorKind = "translation-failed"
	KindPronunciationFailed  ErrorKind = "pronunciation-failed"
	KindBothFailed           ErrorKind = "both-failed"
)

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// session's current state. The session is left unchanged.
	ErrInvalidState = errors.New("game: operation not valid in current state")

	// ErrEmptyInput is returned for a blank translation.
	ErrEmptyInput = errors.New("game: empty input")

	// ErrEmptyVocabulary is returned when a game is started without words.
	ErrEmptyVocabulary = errors.New("game: vocabulary is empty")

	// ErrUnknownDifficulty is returned for a difficulty without a time limit.
	ErrUnknownDifficulty = errors.New("game: unknown difficulty")
)

const (
	// DefaultTick is the timer decrement.
	DefaultTick = 100 * time.Millisecond
	// DefaultMaxAttempts bounds pronunciation attempts per word.
	DefaultMaxAttempts = 3
	// DefaultPassingScore is the lowest passing pronunciation score.
	DefaultPassingScore = 60
	// DefaultDisplayDelay separates translation feedback from the
	// pronunciation phase.
	DefaultDisplayDelay = 2 * time.Second
)

// Config holds the rules of a game.
type Config struct {
	// Limits maps each difficulty to its per-phase time limit.
	Limits map[Difficulty]time.Duration

	// Tick is the timer decrement per tick.
	Tick time.Duration

	// MaxAttempts bounds pronunciation attempts per word.
	MaxAttempts int

	// PassingScore is the lowest pronunciation score that passes.
	PassingScore int
}

// DefaultConfig returns the standard rules: 15s/8s/3s limits, 100ms ticks,
// three attempts and a passing score of 60.
func DefaultConfig() Config {
	return Config{
		Limits: map[Difficulty]time.Duration{
			Easy:   15 * time.Second,
			Medium: 8 * time.Second,
			Hard:   3 * time.Second,
		},
		Tick:         DefaultTick,
		MaxAttempts:  DefaultMaxAttempts,
		PassingScore: DefaultPassingScore,
	}
}

// withDefaults fills zero fields from [DefaultConfig].
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if len(c.Limits) == 0 {
		c.Limits = def.Limits
	}
	if c.Tick <= 0 {
		c.Tick = def.Tick
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.PassingScore <= 0 {
		c.PassingScore = def.PassingScore
	}
	return c
}

// ErrorDetails is the structured payload of a failure record.
type ErrorDetails struct {
	Translation        bool `json:"translation"`
	Pronunciation      bool `json:"pronunciation"`
	PronunciationScore int  `json:"pronunciationScore"`
}

// ErrorRecord is one entry of the error log.
type ErrorRecord struct {
	Word string    `json:"word"`
	Kind ErrorKind `json:"kind"`

	// Details is set for failure records and nil for timeouts.
	Details *ErrorDetails `json:"details,omitempty"`

	// Message is a human-readable description for timeouts.
	Message string `json:"message,omitempty"`
}

// Outcome is the resolution of one word, computed exactly once.
type Outcome struct {
	Word                string `json:"word"`
	Correct             bool   `json:"correct"`
	Points              int    `json:"points"`
	TranslationPassed   bool   `json:"translationPassed"`
	PronunciationPassed bool   `json:"pronunciationPassed"`
	PronunciationScore  int    `json:"pronunciationScore"`

	// Kind is the failure classification; empty on success.
	Kind ErrorKind `json:"kind,omitempty"`

	// TimedOut reports that the phase timer resolved the word.
	TimedOut bool `json:"timedOut"`
}

// Label returns the metric label of the outcome.
func (o Outcome) Label() string {
	if o.Correct {
		return "correct"
	}
	return string(o.Kind)
}

// TickResult reports the timer after one [Session.Tick].
type TickResult struct {
	// Counting reports whether the tick decremented the timer.
	Counting bool

	Remaining time.Duration

	// Fraction is Remaining over the phase limit, in [0, 1].
	Fraction float64

	// Seconds is Remaining rounded up to whole seconds.
	Seconds int

	// TimedOut is true only on the tick that fired the phase timeout.
	TimedOut bool

	// Outcome is set when the timeout resolved the word.
	Outcome *Outcome
}

// Summary is the end-of-game report.
type Summary struct {
	Score     int           `json:"score"`
	Accuracy  int           `json:"accuracy"`
	WordCount int           `json:"wordCount"`
	Correct   int           `json:"correct"`
	Incorrect int           `json:"incorrect"`
	Errors    []ErrorRecord `json:"errors"`
}

// State is a read-only view of a [Session].
type State struct {
	Status     Status     `json:"status"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	Phase      Phase      `json:"phase,omitempty"`
	Word       string     `json:"word,omitempty"`
	WordIndex  int        `json:"wordIndex"`
	WordCount  int        `json:"wordCount"`

	RemainingMS int64 `json:"remainingMs"`
	LimitMS     int64 `json:"limitMs"`
	Paused      bool  `json:"paused"`
	Held        bool  `json:"held"`
	Pending     bool  `json:"pending"`

	TranslationCorrect bool `json:"translationCorrect"`
	TranslationDone    bool `json:"translationDone"`
	Attempts           int  `json:"attempts"`
	MaxAttempts        int  `json:"maxAttempts"`
	BestScore          int  `json:"bestScore"`
	Resolved           bool `json:"resolved"`

	Score     int `json:"score"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`

	Outcome *Outcome      `json:"outcome,omitempty"`
	Errors  []ErrorRecord `json:"errors"`
}
