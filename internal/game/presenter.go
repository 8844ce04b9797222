package game

import (
	"github.com/MrWong99/translateblitz/internal/grading"
)

// Event names used by presenters that serialize calls.
const (
	EventWord                  = "word"
	EventPhase                 = "phase"
	EventTimer                 = "timer"
	EventTranslationFeedback   = "translation_feedback"
	EventPronunciationFeedback = "pronunciation_feedback"
	EventOutcome               = "outcome"
	EventDecision              = "decision"
	EventNotice                = "notice"
	EventSummary               = "summary"
)

// TimerView is the payload of [EventTimer].
type TimerView struct {
	Seconds  int     `json:"seconds"`
	Fraction float64 `json:"fraction"`
}

// PronunciationFeedback is the payload of [EventPronunciationFeedback].
type PronunciationFeedback struct {
	grading.PronunciationResult
	Attempt int `json:"attempt"`
}

// WordView describes the word being played.
type WordView struct {
	Word       string     `json:"word"`
	Index      int        `json:"index"`
	Total      int        `json:"total"`
	Difficulty Difficulty `json:"difficulty"`
	LimitMS    int64      `json:"limitMs"`
}

// PhaseView describes the phase that just became active.
type PhaseView struct {
	Phase Phase  `json:"phase"`
	Word  string `json:"word"`

	// Phonetic is an IPA hint for the pronunciation phase, if known.
	Phonetic string `json:"phonetic,omitempty"`

	// Attempt is the next pronunciation attempt, 1-based.
	Attempt     int `json:"attempt,omitempty"`
	MaxAttempts int `json:"maxAttempts,omitempty"`
}

// Decision asks the player to retry or abandon after a grading failure.
type Decision struct {
	Kind    grading.Kind  `json:"kind"`
	Class   grading.Class `json:"class"`
	Message string        `json:"message"`
}

// Presenter renders a running game. A [Runner] calls it from its own
// goroutine, one call at a time; implementations must not block.
type Presenter interface {
	DisplayWord(w WordView)
	DisplayPhase(p PhaseView)
	DisplayTimer(seconds int, fraction float64)
	DisplayTranslationFeedback(r grading.TranslationResult)
	DisplayPronunciationFeedback(r grading.PronunciationResult, attempt int)
	DisplayOutcome(o Outcome)
	PromptDecision(d Decision)
	Notice(msg string)
	ShowSummary(s Summary)
}

// NopPresenter discards everything.
type NopPresenter struct{}

var _ Presenter = NopPresenter{}

func (NopPresenter) DisplayWord(WordView)                                          {}
func (NopPresenter) DisplayPhase(PhaseView)                                        {}
func (NopPresenter) DisplayTimer(int, float64)                                     {}
func (NopPresenter) DisplayTranslationFeedback(grading.TranslationResult)          {}
func (NopPresenter) DisplayPronunciationFeedback(grading.PronunciationResult, int) {}
func (NopPresenter) DisplayOutcome(Outcome)                                        {}
func (NopPresenter) PromptDecision(Decision)                                       {}
func (NopPresenter) Notice(string)                                                 {}
func (NopPresenter) ShowSummary(Summary)                                           {}
