package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/translateblitz/internal/grading"
	"github.com/MrWong99/translateblitz/internal/observe"
	"github.com/MrWong99/translateblitz/internal/speech"
	"github.com/MrWong99/translateblitz/internal/vocabulary"
)

var (
	// ErrClosed is returned by every [Runner] method after [Runner.Close].
	ErrClosed = errors.New("game: runner closed")

	// ErrGraderUnavailable is returned by [Runner.Start] when the grading
	// backend failed its availability check and no local answer is possible.
	ErrGraderUnavailable = errors.New("game: grading service unavailable")

	// ErrNoDecision is returned by [Runner.Decide] when no decision is
	// outstanding.
	ErrNoDecision = errors.New("game: no decision pending")

	// ErrCaptureInProgress is returned by [Runner.Record] while another
	// utterance is being captured.
	ErrCaptureInProgress = errors.New("game: capture already in progress")
)

const (
	abandonedExplanation = "No se pudo validar la traducción debido a problemas de conectividad."
	abandonedTips        = "Verifica tu conexión a internet para obtener validación de IA."
)

// Grader is the grading dependency of a [Runner]. [*grading.Service]
// implements it.
type Grader interface {
	grading.Grader
	CheckAvailability(ctx context.Context) error
	CanAnswerLocally() bool
	// Reset drops cached verdicts and any downgrade so a new game does not
	// inherit them.
	Reset()
}

var _ Grader = (*grading.Service)(nil)

// RunnerOption configures a [Runner].
type RunnerOption func(*Runner)

// WithClock sets the time source. Default: [RealClock].
func WithClock(c Clock) RunnerOption {
	return func(r *Runner) { r.clock = c }
}

// WithDisplayDelay sets the pause between translation feedback and the
// pronunciation phase. Default: [DefaultDisplayDelay].
func WithDisplayDelay(d time.Duration) RunnerOption {
	return func(r *Runner) { r.displayDelay = d }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger. Default: [slog.Default].
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

type request struct {
	fn   func() error
	done chan error
}

type decision struct {
	kind  grading.Kind
	token uint64
}

// Runner drives one [Session] from a dedicated goroutine. User requests,
// timer ticks, grading results and display delays are processed one at a
// time in arrival order, so the session never sees two events at once.
//
// All exported methods are safe for concurrent use and block until the event
// was processed.
type Runner struct {
	session      *Session
	grader       Grader
	presenter    Presenter
	clock        Clock
	displayDelay time.Duration
	metrics      *observe.Metrics
	logger       *slog.Logger

	// ctx bounds grading calls; it is cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	reqs      chan request
	events    chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the loop goroutine.
	ticker    Ticker
	tickC     <-chan time.Time
	delay     Timer
	decision  *decision
	capturing bool
}

// NewRunner creates a Runner for a fresh session with cfg and starts its
// goroutine. Call [Runner.Close] to stop it.
func NewRunner(cfg Config, g Grader, p Presenter, opts ...RunnerOption) *Runner {
	r := &Runner{
		session:      NewSession(cfg),
		grader:       g,
		presenter:    p,
		clock:        RealClock{},
		displayDelay: DefaultDisplayDelay,
		reqs:         make(chan request),
		events:       make(chan func(), 8),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	if r.presenter == nil {
		r.presenter = NopPresenter{}
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	go r.loop()
	return r
}

func (r *Runner) loop() {
	defer close(r.done)
	for {
		select {
		case req := <-r.reqs:
			req.done <- req.fn()
		case ev := <-r.events:
			ev()
		case <-r.tickC:
			r.onTick()
		case <-r.quit:
			r.stopTicker()
			r.stopDelay()
			return
		}
	}
}

// do runs fn on the loop goroutine and waits for its result.
func (r *Runner) do(ctx context.Context, fn func() error) error {
	req := request{fn: fn, done: make(chan error, 1)}
	select {
	case r.reqs <- req:
	case <-r.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-r.done:
		return ErrClosed
	}
}

// post queues an internal event. Events posted after Close are dropped.
func (r *Runner) post(ev func()) {
	select {
	case r.events <- ev:
	case <-r.quit:
	}
}

// Start checks the grading backend and begins a game. A failed check
// refuses the start unless the grader can still answer locally.
func (r *Runner) Start(ctx context.Context, vocab []string, d Difficulty) error {
	if err := r.do(ctx, func() error {
		if r.session.status == StatusRunning {
			return ErrInvalidState
		}
		if len(vocab) == 0 {
			return ErrEmptyVocabulary
		}
		if _, ok := r.session.cfg.Limits[d]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownDifficulty, d)
		}
		return nil
	}); err != nil {
		return err
	}

	r.grader.Reset()
	if err := r.grader.CheckAvailability(ctx); err != nil {
		if !r.grader.CanAnswerLocally() {
			observe.Logger(ctx).Warn("game: refusing start, grading backend unavailable", "err", err)
			return fmt.Errorf("%w: %w", ErrGraderUnavailable, err)
		}
		observe.Logger(ctx).Warn("game: grading backend unavailable, continuing with local grading", "err", err)
	}

	return r.do(ctx, func() error {
		if err := r.session.Start(vocab, d); err != nil {
			return err
		}
		r.decision = nil
		r.capturing = false
		r.stopDelay()
		r.startTicker()
		r.logger.Info("game started", "difficulty", d, "words", len(vocab))
		r.presentWord()
		return nil
	})
}

// SubmitTranslation grades text against the current word in the background.
func (r *Runner) SubmitTranslation(ctx context.Context, text string) error {
	return r.do(ctx, func() error {
		input, err := r.session.SubmitTranslation(text)
		if err != nil {
			return err
		}
		token, word := r.session.Activation(), r.session.Word()
		go func() {
			res, err := r.grader.GradeTranslation(r.ctx, word, input)
			r.post(func() { r.onTranslationGraded(token, res, err) })
		}()
		return nil
	})
}

// Record captures one pronunciation attempt with rec and grades it in the
// background. The timer is paused while capturing. A capture error is
// reported to the presenter, the timer resumes and the error is returned.
func (r *Runner) Record(ctx context.Context, rec speech.Recorder) error {
	var token uint64
	if err := r.do(ctx, func() error {
		if r.capturing {
			return ErrCaptureInProgress
		}
		if err := r.session.CanRecord(); err != nil {
			return err
		}
		r.capturing = true
		r.session.Pause()
		token = r.session.Activation()
		return nil
	}); err != nil {
		return err
	}

	cands, captureErr := rec.RecordUtterance(ctx)
	var best speech.Candidate
	if captureErr == nil {
		best, captureErr = speech.Best(cands)
	}

	// The loop may be gone if the caller's context ended; use a fresh one so
	// the capture state is always cleared.
	return r.do(context.WithoutCancel(ctx), func() error {
		r.capturing = false
		if token != r.session.Activation() {
			return ErrInvalidState
		}
		if captureErr != nil {
			r.metrics.RecordSpeechError(ctx, speech.Reason(captureErr))
			r.presenter.Notice(captureNotice(captureErr))
			r.session.Resume()
			return captureErr
		}
		attempt, err := r.session.BeginPronunciationAttempt()
		if err != nil {
			r.session.Resume()
			return err
		}
		word := r.session.Word()
		go func() {
			res, err := r.grader.GradePronunciation(r.ctx, word, best.Transcript, best.Confidence)
			r.post(func() { r.onPronunciationGraded(token, attempt, res, err) })
		}()
		return nil
	})
}

// Decide answers an outstanding retry-or-abandon prompt.
func (r *Runner) Decide(ctx context.Context, retry bool) error {
	return r.do(ctx, func() error {
		d := r.decision
		if d == nil || d.token != r.session.Activation() {
			r.decision = nil
			return ErrNoDecision
		}
		r.decision = nil

		switch {
		case d.kind == grading.KindTranslation && retry:
			if err := r.session.RetryTranslation(); err != nil {
				return err
			}
			r.presentTimer()
		case d.kind == grading.KindTranslation:
			if err := r.session.AbandonTranslation(); err != nil {
				return err
			}
			r.presenter.DisplayTranslationFeedback(grading.TranslationResult{
				Correct:     false,
				Explanation: abandonedExplanation,
				Tips:        abandonedTips,
			})
			r.scheduleDisplayDelay(d.token)
		case retry:
			if err := r.session.RetryPronunciation(); err != nil {
				return err
			}
			r.presentTimer()
		default:
			out, err := r.session.AbandonPronunciation()
			if err != nil {
				return err
			}
			r.finishWord(out)
		}
		return nil
	})
}

// Advance moves to the next word, or ends the game after the last one.
func (r *Runner) Advance(ctx context.Context) error {
	return r.do(ctx, func() error {
		complete, err := r.session.AdvanceWord()
		if err != nil {
			return err
		}
		r.decision = nil
		if complete {
			r.stopTicker()
			sum := r.session.Summary()
			r.logger.Info("game complete", "score", sum.Score, "accuracy", sum.Accuracy)
			r.presenter.ShowSummary(sum)
			return nil
		}
		r.presentWord()
		return nil
	})
}

// Pause halts the phase timer until [Runner.Resume]. Grades that arrive
// meanwhile are applied without restarting the timer.
func (r *Runner) Pause(ctx context.Context) error {
	return r.do(ctx, func() error {
		r.session.Hold()
		return nil
	})
}

// Resume lifts a pause. The timer stays stopped while a capture, a grade or
// a decision is outstanding.
func (r *Runner) Resume(ctx context.Context) error {
	return r.do(ctx, func() error {
		if r.capturing || r.decision != nil {
			r.session.held = false
			return nil
		}
		r.session.Release()
		return nil
	})
}

// Reset abandons the current game, forgets its grading cache and returns the
// session to Idle.
func (r *Runner) Reset(ctx context.Context) error {
	return r.do(ctx, func() error {
		r.grader.Reset()
		r.session.Reset()
		r.decision = nil
		r.capturing = false
		r.stopDelay()
		r.stopTicker()
		return nil
	})
}

// Snapshot returns the current session state.
func (r *Runner) Snapshot(ctx context.Context) (State, error) {
	var st State
	err := r.do(ctx, func() error {
		st = r.session.Snapshot()
		return nil
	})
	return st, err
}

// Summary returns the totals of the current or last game.
func (r *Runner) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	err := r.do(ctx, func() error {
		sum = r.session.Summary()
		return nil
	})
	return sum, err
}

// Close stops the runner and cancels outstanding grading calls. It is
// idempotent.
func (r *Runner) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()
		close(r.quit)
	})
	<-r.done
	return nil
}

func (r *Runner) onTick() {
	res := r.session.Tick()
	if !res.Counting {
		return
	}
	r.presenter.DisplayTimer(res.Seconds, res.Fraction)
	if res.TimedOut {
		r.decision = nil
		r.stopDelay()
		r.finishWord(res.Outcome)
	}
}

func (r *Runner) onTranslationGraded(token uint64, res grading.TranslationResult, err error) {
	if token != r.session.Activation() || !r.session.gradingTranslation() {
		r.logger.Debug("game: dropping stale translation grade", "token", token)
		return
	}
	if err != nil {
		r.promptDecision(grading.KindTranslation, token, err)
		return
	}
	if err := r.session.ApplyTranslationResult(res.Correct); err != nil {
		return
	}
	r.presenter.DisplayTranslationFeedback(res)
	r.scheduleDisplayDelay(token)
}

func (r *Runner) onPronunciationGraded(token uint64, attempt int, res grading.PronunciationResult, err error) {
	if token != r.session.Activation() || !r.session.gradingPronunciation() {
		r.logger.Debug("game: dropping stale pronunciation grade", "token", token)
		return
	}
	if err != nil {
		r.promptDecision(grading.KindPronunciation, token, err)
		return
	}
	r.presenter.DisplayPronunciationFeedback(res, attempt)
	out, err := r.session.ApplyPronunciationResult(res.OverallScore)
	if err != nil {
		return
	}
	if out != nil {
		r.finishWord(out)
		return
	}
	r.presentTimer()
}

func (r *Runner) promptDecision(kind grading.Kind, token uint64, err error) {
	if r.ctx.Err() != nil {
		return
	}
	class := grading.ErrorClass(err)
	r.logger.Warn("game: grading failed", "kind", kind, "class", class, "err", err)
	r.decision = &decision{kind: kind, token: token}
	r.presenter.PromptDecision(Decision{Kind: kind, Class: class, Message: decisionMessage(kind, class)})
}

// scheduleDisplayDelay starts the pronunciation phase after the display
// delay unless the activation changed in between.
func (r *Runner) scheduleDisplayDelay(token uint64) {
	r.stopDelay()
	r.delay = r.clock.AfterFunc(r.displayDelay, func() {
		r.post(func() { r.onDisplayDelay(token) })
	})
}

func (r *Runner) onDisplayDelay(token uint64) {
	r.delay = nil
	if token != r.session.Activation() {
		return
	}
	if err := r.session.BeginPronunciation(); err != nil {
		return
	}
	r.presentPhase()
	r.presentTimer()
}

func (r *Runner) finishWord(out *Outcome) {
	if out == nil {
		return
	}
	r.metrics.RecordWordOutcome(r.ctx, string(r.session.Difficulty()), out.Label())
	r.logger.Info("word resolved", "word", out.Word, "outcome", out.Label(), "points", out.Points)
	r.presenter.DisplayOutcome(*out)
}

func (r *Runner) presentWord() {
	st := r.session.Snapshot()
	r.presenter.DisplayWord(WordView{
		Word:       st.Word,
		Index:      st.WordIndex,
		Total:      st.WordCount,
		Difficulty: st.Difficulty,
		LimitMS:    st.LimitMS,
	})
	r.presentPhase()
	r.presentTimer()
}

func (r *Runner) presentPhase() {
	st := r.session.Snapshot()
	v := PhaseView{Phase: st.Phase, Word: st.Word}
	if st.Phase == PhasePronunciation {
		v.Phonetic, _ = vocabulary.Phonetic(st.Word)
		v.Attempt = st.Attempts + 1
		v.MaxAttempts = st.MaxAttempts
	}
	r.presenter.DisplayPhase(v)
}

func (r *Runner) presentTimer() {
	res := r.session.tickResult(false)
	r.presenter.DisplayTimer(res.Seconds, res.Fraction)
}

func (r *Runner) startTicker() {
	r.stopTicker()
	r.ticker = r.clock.NewTicker(r.session.cfg.Tick)
	r.tickC = r.ticker.C()
}

func (r *Runner) stopTicker() {
	if r.ticker != nil {
		r.ticker.Stop()
	}
	r.ticker = nil
	r.tickC = nil
}

func (r *Runner) stopDelay() {
	if r.delay != nil {
		r.delay.Stop()
		r.delay = nil
	}
}

func decisionMessage(kind grading.Kind, class grading.Class) string {
	var msg string
	if kind == grading.KindTranslation {
		msg = "Error connecting to AI service. "
	} else {
		msg = "Error analyzing pronunciation with AI. "
	}
	switch class {
	case grading.ClassTimeout:
		msg += "The AI service is taking too long to respond."
	case grading.ClassStatus:
		msg += "There was a server error. Please check your internet connection."
	case grading.ClassParse:
		msg += "The AI response was invalid."
	default:
		msg += "Please check your internet connection."
	}
	if kind == grading.KindTranslation {
		return msg + " Would you like to try again?"
	}
	return msg + " Would you like to try recording again?"
}

func captureNotice(err error) string {
	switch {
	case errors.Is(err, speech.ErrNoSpeech):
		return "No speech detected. Please try again."
	case errors.Is(err, speech.ErrPermissionDenied):
		return "Recording failed. Please check microphone permissions."
	default:
		return "Speech recognition is not available. Try again or type on another device."
	}
}
