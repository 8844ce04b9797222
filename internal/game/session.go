package game

import (
	"math"
	"strings"
	"time"
)

const (
	timeoutTranslationMsg   = "Tiempo agotado en la fase de traducción"
	timeoutPronunciationMsg = "Tiempo agotado en la fase de pronunciación"
)

// Session is the state machine of one game. It is not safe for concurrent
// use; [Runner] serializes access to it.
//
// Every operation either succeeds or returns an error and leaves the session
// untouched.
type Session struct {
	cfg Config

	vocab      []string
	index      int
	difficulty Difficulty
	limit      time.Duration
	status     Status
	phase      Phase

	remaining time.Duration
	paused    bool
	// held is a pause requested by the player. Only Release lifts it;
	// grading results and new phases leave the timer stopped.
	held bool
	// pending marks a grading call in flight for the current phase.
	pending  bool
	timedOut bool
	// activation increments every time a phase timer is armed.
	activation uint64

	translationDone    bool
	translationCorrect bool
	translationInput   string
	bestScore          int
	attempts           int
	resolved           bool
	outcome            *Outcome

	score     int
	correct   int
	incorrect int
	errors    []ErrorRecord
}

// NewSession returns an idle session. Zero fields of cfg take their
// defaults.
func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg.withDefaults(), status: StatusIdle}
}

// Config returns the rules of the session.
func (s *Session) Config() Config { return s.cfg }

// Start begins a game over vocab at difficulty d. It is allowed from Idle and
// Complete and puts the session in the translation phase of the first word.
func (s *Session) Start(vocab []string, d Difficulty) error {
	if s.status == StatusRunning {
		return ErrInvalidState
	}
	if len(vocab) == 0 {
		return ErrEmptyVocabulary
	}
	limit, ok := s.cfg.Limits[d]
	if !ok || limit <= 0 {
		return ErrUnknownDifficulty
	}

	s.vocab = append([]string(nil), vocab...)
	s.index = 0
	s.difficulty = d
	s.limit = limit
	s.score, s.correct, s.incorrect = 0, 0, 0
	s.errors = nil
	s.held = false
	s.status = StatusRunning
	s.loadWord()
	return nil
}

// loadWord clears per-word state and arms the translation timer.
func (s *Session) loadWord() {
	s.phase = PhaseTranslation
	s.translationDone = false
	s.translationCorrect = false
	s.translationInput = ""
	s.bestScore = 0
	s.attempts = 0
	s.resolved = false
	s.outcome = nil
	s.pending = false
	s.arm()
}

// arm starts a fresh phase activation at the full limit.
func (s *Session) arm() {
	s.remaining = s.limit
	s.paused = s.held
	s.timedOut = false
	s.activation++
}

// Activation identifies the current phase activation. Results computed for
// an older activation must be discarded.
func (s *Session) Activation() uint64 { return s.activation }

// Word returns the current word, or "" when no game is running.
func (s *Session) Word() string {
	if s.status != StatusRunning || s.index >= len(s.vocab) {
		return ""
	}
	return s.vocab[s.index]
}

// Difficulty returns the difficulty of the current game.
func (s *Session) Difficulty() Difficulty { return s.difficulty }

func (s *Session) running(p Phase) bool {
	return s.status == StatusRunning && s.phase == p && !s.resolved
}

// SubmitTranslation accepts the player's translation and pauses the timer
// for grading. It returns the trimmed text to grade.
func (s *Session) SubmitTranslation(text string) (string, error) {
	if !s.running(PhaseTranslation) || s.translationDone || s.pending || s.timedOut {
		return "", ErrInvalidState
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	s.translationInput = text
	s.pending = true
	s.paused = true
	return text, nil
}

// TranslationInput returns the last accepted translation of the current word.
func (s *Session) TranslationInput() string { return s.translationInput }

func (s *Session) gradingTranslation() bool {
	return s.running(PhaseTranslation) && s.pending
}

// ApplyTranslationResult records the graded translation. The timer stays
// paused until [Session.BeginPronunciation].
func (s *Session) ApplyTranslationResult(correct bool) error {
	if !s.gradingTranslation() {
		return ErrInvalidState
	}
	s.pending = false
	s.translationDone = true
	s.translationCorrect = correct
	return nil
}

// RetryTranslation drops a failed grading call and resumes the timer so the
// player can submit again.
func (s *Session) RetryTranslation() error {
	if !s.gradingTranslation() {
		return ErrInvalidState
	}
	s.pending = false
	s.Resume()
	return nil
}

// AbandonTranslation records the translation as failed after a grading
// failure. The word continues with the pronunciation phase.
func (s *Session) AbandonTranslation() error {
	if !s.gradingTranslation() {
		return ErrInvalidState
	}
	s.pending = false
	s.translationDone = true
	s.translationCorrect = false
	return nil
}

// BeginPronunciation switches to the pronunciation phase and re-arms the
// timer at the full limit.
func (s *Session) BeginPronunciation() error {
	if !s.running(PhaseTranslation) || !s.translationDone {
		return ErrInvalidState
	}
	s.phase = PhasePronunciation
	s.attempts = 0
	s.arm()
	return nil
}

// CanRecord reports whether a pronunciation attempt may start now.
func (s *Session) CanRecord() error {
	if !s.running(PhasePronunciation) || s.pending || s.timedOut || s.attempts >= s.cfg.MaxAttempts {
		return ErrInvalidState
	}
	return nil
}

// BeginPronunciationAttempt counts a captured utterance as an attempt and
// pauses the timer for grading. It returns the attempt number.
func (s *Session) BeginPronunciationAttempt() (int, error) {
	if err := s.CanRecord(); err != nil {
		return 0, err
	}
	s.attempts++
	s.pending = true
	s.paused = true
	return s.attempts, nil
}

func (s *Session) gradingPronunciation() bool {
	return s.running(PhasePronunciation) && s.pending
}

// ApplyPronunciationResult records a graded attempt. The word resolves when
// the attempts are exhausted; otherwise the timer resumes and the returned
// outcome is nil.
func (s *Session) ApplyPronunciationResult(score int) (*Outcome, error) {
	if !s.gradingPronunciation() {
		return nil, ErrInvalidState
	}
	s.pending = false
	s.bestScore = max(s.bestScore, score)
	if s.attempts >= s.cfg.MaxAttempts {
		return s.resolve(false), nil
	}
	s.Resume()
	return nil, nil
}

// RetryPronunciation uncounts an attempt whose grading failed and resumes the
// timer.
func (s *Session) RetryPronunciation() error {
	if !s.gradingPronunciation() {
		return ErrInvalidState
	}
	s.pending = false
	s.attempts--
	s.Resume()
	return nil
}

// AbandonPronunciation resolves the word with the best score so far.
func (s *Session) AbandonPronunciation() (*Outcome, error) {
	if !s.running(PhasePronunciation) {
		return nil, ErrInvalidState
	}
	s.pending = false
	return s.resolve(false), nil
}

// Pause halts the timer without losing the remaining time.
func (s *Session) Pause() {
	if s.status == StatusRunning && !s.resolved {
		s.paused = true
	}
}

// Hold pauses the timer on the player's behalf. Unlike [Session.Pause] it
// survives grading results and phase changes until [Session.Release].
func (s *Session) Hold() {
	if s.status != StatusRunning {
		return
	}
	s.held = true
	s.paused = true
}

// Release lifts a [Session.Hold] and resumes the timer where allowed.
func (s *Session) Release() {
	s.held = false
	s.Resume()
}

// Held reports whether the player paused the game.
func (s *Session) Held() bool { return s.held }

// Resume restarts the timer from the preserved remaining time. It does
// nothing while the player holds the game, a grade is pending, after
// resolution or once time ran out. A graded translation stays paused until
// the pronunciation phase begins.
func (s *Session) Resume() {
	if s.status != StatusRunning || s.held || s.resolved || s.pending || s.timedOut || s.remaining <= 0 {
		return
	}
	if s.phase == PhaseTranslation && s.translationDone {
		return
	}
	s.paused = false
}

// Counting reports whether the timer is decrementing.
func (s *Session) Counting() bool {
	return s.status == StatusRunning && !s.paused && !s.resolved && !s.timedOut
}

// Tick advances the timer by one tick. The phase timeout fires once per
// activation, on the tick where the remaining time first reaches zero.
func (s *Session) Tick() TickResult {
	if !s.Counting() {
		return s.tickResult(false)
	}
	s.remaining -= s.cfg.Tick
	if s.remaining > 0 {
		return s.tickResult(true)
	}

	s.remaining = 0
	s.timedOut = true
	s.paused = true
	word := s.vocab[s.index]
	var out *Outcome
	switch s.phase {
	case PhaseTranslation:
		s.errors = append(s.errors, ErrorRecord{Word: word, Kind: KindTimeoutTranslation, Message: timeoutTranslationMsg})
		s.incorrect++
		s.resolved = true
		s.outcome = &Outcome{
			Word:     word,
			Kind:     KindTimeoutTranslation,
			TimedOut: true,
		}
		out = s.outcome
	case PhasePronunciation:
		s.errors = append(s.errors, ErrorRecord{Word: word, Kind: KindTimeoutPronunciation, Message: timeoutPronunciationMsg})
		out = s.resolve(true)
	}
	r := s.tickResult(true)
	r.TimedOut = true
	r.Outcome = out
	return r
}

func (s *Session) tickResult(counting bool) TickResult {
	r := TickResult{Counting: counting, Remaining: s.remaining}
	if s.limit > 0 {
		r.Fraction = min(1, max(0, float64(s.remaining)/float64(s.limit)))
	}
	if s.remaining > 0 {
		r.Seconds = int(math.Ceil(s.remaining.Seconds()))
	}
	return r
}

// resolve computes the word outcome. Both phases must pass for points.
func (s *Session) resolve(timedOut bool) *Outcome {
	word := s.vocab[s.index]
	tPassed := s.translationCorrect
	pPassed := s.bestScore >= s.cfg.PassingScore
	out := &Outcome{
		Word:                word,
		TranslationPassed:   tPassed,
		PronunciationPassed: pPassed,
		PronunciationScore:  s.bestScore,
		TimedOut:            timedOut,
	}

	if tPassed && pPassed {
		bonus := max(0, float64(s.remaining)/float64(s.limit))
		out.Points = int(math.Round(100 * (1 + bonus)))
		out.Correct = true
		s.score += out.Points
		s.correct++
	} else {
		switch {
		case tPassed:
			out.Kind = KindPronunciationFailed
		case pPassed:
			out.Kind = KindTranslationFailed
		default:
			out.Kind = KindBothFailed
		}
		s.incorrect++
		s.errors = append(s.errors, ErrorRecord{
			Word: word,
			Kind: out.Kind,
			Details: &ErrorDetails{
				Translation:        tPassed,
				Pronunciation:      pPassed,
				PronunciationScore: s.bestScore,
			},
		})
	}

	s.resolved = true
	s.paused = true
	s.outcome = out
	return out
}

// AdvanceWord moves past a resolved word. After the last word the session
// becomes Complete and the returned bool is true.
func (s *Session) AdvanceWord() (complete bool, err error) {
	if s.status != StatusRunning || !s.resolved {
		return false, ErrInvalidState
	}
	s.index++
	if s.index >= len(s.vocab) {
		s.status = StatusComplete
		s.paused = true
		s.activation++
		return true, nil
	}
	s.loadWord()
	return false, nil
}

// Reset returns the session to Idle. Outstanding grading results become
// stale.
func (s *Session) Reset() {
	activation := s.activation
	*s = Session{cfg: s.cfg, status: StatusIdle, activation: activation + 1}
}

// Summary reports the totals of the current or last game.
func (s *Session) Summary() Summary {
	sum := Summary{
		Score:     s.score,
		WordCount: len(s.vocab),
		Correct:   s.correct,
		Incorrect: s.incorrect,
		Errors:    append([]ErrorRecord(nil), s.errors...),
	}
	if sum.WordCount > 0 {
		sum.Accuracy = int(math.Round(float64(s.correct) / float64(sum.WordCount) * 100))
	}
	return sum
}

// Snapshot returns a copy of the observable state.
func (s *Session) Snapshot() State {
	st := State{
		Status:             s.status,
		Difficulty:         s.difficulty,
		WordIndex:          s.index,
		WordCount:          len(s.vocab),
		RemainingMS:        s.remaining.Milliseconds(),
		LimitMS:            s.limit.Milliseconds(),
		Paused:             s.paused,
		Held:               s.held,
		Pending:            s.pending,
		TranslationCorrect: s.translationCorrect,
		TranslationDone:    s.translationDone,
		Attempts:           s.attempts,
		MaxAttempts:        s.cfg.MaxAttempts,
		BestScore:          s.bestScore,
		Resolved:           s.resolved,
		Score:              s.score,
		Correct:            s.correct,
		Incorrect:          s.incorrect,
		Errors:             append([]ErrorRecord{}, s.errors...),
	}
	if s.status == StatusRunning {
		st.Phase = s.phase
		st.Word = s.Word()
	}
	if s.outcome != nil {
		o := *s.outcome
		st.Outcome = &o
	}
	return st
}
