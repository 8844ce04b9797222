package game_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/MrWong99/translateblitz/internal/game"
)

func newSession(t *testing.T, vocab ...string) *game.Session {
	t.Helper()
	s := game.NewSession(game.DefaultConfig())
	if len(vocab) == 0 {
		vocab = []string{"house"}
	}
	if err := s.Start(vocab, game.Medium); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func ticks(s *game.Session, n int) game.TickResult {
	var r game.TickResult
	for range n {
		r = s.Tick()
	}
	return r
}

// translate submits and applies a translation verdict.
func translate(t *testing.T, s *game.Session, correct bool) {
	t.Helper()
	if _, err := s.SubmitTranslation("casa"); err != nil {
		t.Fatalf("SubmitTranslation: %v", err)
	}
	if err := s.ApplyTranslationResult(correct); err != nil {
		t.Fatalf("ApplyTranslationResult: %v", err)
	}
	if err := s.BeginPronunciation(); err != nil {
		t.Fatalf("BeginPronunciation: %v", err)
	}
}

// attempt records one graded pronunciation attempt.
func attempt(t *testing.T, s *game.Session, score int) *game.Outcome {
	t.Helper()
	if _, err := s.BeginPronunciationAttempt(); err != nil {
		t.Fatalf("BeginPronunciationAttempt: %v", err)
	}
	out, err := s.ApplyPronunciationResult(score)
	if err != nil {
		t.Fatalf("ApplyPronunciationResult: %v", err)
	}
	return out
}

func TestSession_StartValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		vocab []string
		diff  game.Difficulty
		want  error
	}{
		{name: "empty vocabulary", diff: game.Easy, want: game.ErrEmptyVocabulary},
		{name: "unknown difficulty", vocab: []string{"house"}, diff: "nightmare", want: game.ErrUnknownDifficulty},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := game.NewSession(game.DefaultConfig())
			if err := s.Start(tc.vocab, tc.diff); !errors.Is(err, tc.want) {
				t.Fatalf("Start err = %v, want %v", err, tc.want)
			}
			if st := s.Snapshot(); st.Status != game.StatusIdle {
				t.Errorf("status = %s, want idle", st.Status)
			}
		})
	}

	t.Run("running", func(t *testing.T) {
		t.Parallel()
		s := newSession(t)
		if err := s.Start([]string{"car"}, game.Easy); !errors.Is(err, game.ErrInvalidState) {
			t.Fatalf("Start while running err = %v, want ErrInvalidState", err)
		}
		if got := s.Word(); got != "house" {
			t.Errorf("word = %q, want house", got)
		}
	})
}

func TestSession_StartArmsTranslation(t *testing.T) {
	t.Parallel()

	s := newSession(t, "house", "car")
	st := s.Snapshot()
	if st.Status != game.StatusRunning || st.Phase != game.PhaseTranslation || st.Word != "house" {
		t.Fatalf("state = %+v", st)
	}
	if st.RemainingMS != 8000 || st.LimitMS != 8000 || st.Paused {
		t.Errorf("timer = %dms/%dms paused=%v, want 8000/8000 running", st.RemainingMS, st.LimitMS, st.Paused)
	}
}

func TestSession_TickReporting(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	r := ticks(s, 5)
	if !r.Counting || r.Remaining != 7500*time.Millisecond {
		t.Fatalf("tick = %+v, want 7.5s counting", r)
	}
	if r.Seconds != 8 {
		t.Errorf("Seconds = %d, want 8 (rounded up)", r.Seconds)
	}
	if want := 7500.0 / 8000.0; r.Fraction != want {
		t.Errorf("Fraction = %v, want %v", r.Fraction, want)
	}
}

func TestSession_IdleDoesNotTick(t *testing.T) {
	t.Parallel()

	s := game.NewSession(game.DefaultConfig())
	if r := s.Tick(); r.Counting || r.TimedOut {
		t.Fatalf("idle tick = %+v", r)
	}
}

func TestSession_EmptyTranslationRejected(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	before := s.Snapshot()
	for _, in := range []string{"", "   ", "\t\n"} {
		if _, err := s.SubmitTranslation(in); !errors.Is(err, game.ErrEmptyInput) {
			t.Fatalf("SubmitTranslation(%q) err = %v, want ErrEmptyInput", in, err)
		}
	}
	if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("state changed on rejected input:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestSession_SubmitPausesTimer(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	ticks(s, 10)
	got, err := s.SubmitTranslation("  la casa ")
	if err != nil {
		t.Fatalf("SubmitTranslation: %v", err)
	}
	if got != "la casa" {
		t.Errorf("input = %q, want trimmed", got)
	}
	if r := ticks(s, 100); r.Counting || r.TimedOut {
		t.Fatalf("timer ran while grading: %+v", r)
	}
	if _, err := s.SubmitTranslation("casa"); !errors.Is(err, game.ErrInvalidState) {
		t.Errorf("double submit err = %v, want ErrInvalidState", err)
	}
	if st := s.Snapshot(); st.RemainingMS != 7000 || !st.Pending {
		t.Errorf("remaining = %d pending = %v, want 7000 true", st.RemainingMS, st.Pending)
	}
}

func TestSession_RetryTranslationResumesSameTimer(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	ticks(s, 30)
	if _, err := s.SubmitTranslation("casa"); err != nil {
		t.Fatal(err)
	}
	if err := s.RetryTranslation(); err != nil {
		t.Fatalf("RetryTranslation: %v", err)
	}
	r := s.Tick()
	if !r.Counting || r.Remaining != 4900*time.Millisecond {
		t.Fatalf("tick after retry = %+v, want 4.9s", r)
	}
	if _, err := s.SubmitTranslation("hogar"); err != nil {
		t.Errorf("resubmit: %v", err)
	}
}

func TestSession_AbandonTranslationContinues(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	if _, err := s.SubmitTranslation("casa"); err != nil {
		t.Fatal(err)
	}
	if err := s.AbandonTranslation(); err != nil {
		t.Fatalf("AbandonTranslation: %v", err)
	}
	if err := s.BeginPronunciation(); err != nil {
		t.Fatalf("BeginPronunciation after abandon: %v", err)
	}
	st := s.Snapshot()
	if st.Phase != game.PhasePronunciation || st.TranslationCorrect {
		t.Errorf("state = %+v", st)
	}
}

func TestSession_GradedTranslationStaysPaused(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	if _, err := s.SubmitTranslation("casa"); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyTranslationResult(true); err != nil {
		t.Fatal(err)
	}
	s.Resume()
	if r := ticks(s, 200); r.Counting || r.TimedOut {
		t.Fatalf("translation timer ran during display delay: %+v", r)
	}
}

func TestSession_PronunciationRearmsTimer(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	ticks(s, 50)
	before := s.Activation()
	translate(t, s, true)
	st := s.Snapshot()
	if st.Phase != game.PhasePronunciation || st.RemainingMS != 8000 || st.Paused {
		t.Fatalf("state = %+v, want pronunciation armed at 8000ms", st)
	}
	if s.Activation() == before {
		t.Error("activation did not change")
	}
}

func TestSession_WordSuccess(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	translate(t, s, true)
	ticks(s, 20)

	if out := attempt(t, s, 40); out != nil {
		t.Fatalf("resolved after first attempt: %+v", out)
	}
	if out := attempt(t, s, 85); out != nil {
		t.Fatalf("resolved after second attempt: %+v", out)
	}
	out := attempt(t, s, 50)
	if out == nil {
		t.Fatal("third attempt did not resolve")
	}

	// 6s of 8s left: round(100 * 1.75).
	if !out.Correct || out.Points != 175 || out.PronunciationScore != 85 {
		t.Errorf("outcome = %+v, want correct with 175 points, best 85", *out)
	}
	sum := s.Summary()
	if sum.Score != 175 || sum.Correct != 1 || sum.Incorrect != 0 || len(sum.Errors) != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if _, err := s.BeginPronunciationAttempt(); !errors.Is(err, game.ErrInvalidState) {
		t.Errorf("attempt after resolution err = %v", err)
	}
}

func TestSession_FailureKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		translation bool
		scores      [3]int
		want        game.ErrorKind
	}{
		{name: "pronunciation", translation: true, scores: [3]int{10, 59, 30}, want: game.KindPronunciationFailed},
		{name: "translation", translation: false, scores: [3]int{90, 10, 10}, want: game.KindTranslationFailed},
		{name: "both", translation: false, scores: [3]int{0, 20, 40}, want: game.KindBothFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newSession(t)
			translate(t, s, tc.translation)
			var out *game.Outcome
			for _, sc := range tc.scores {
				out = attempt(t, s, sc)
			}
			if out == nil || out.Correct || out.Kind != tc.want {
				t.Fatalf("outcome = %+v, want %s", out, tc.want)
			}
			sum := s.Summary()
			if sum.Incorrect != 1 || sum.Score != 0 || len(sum.Errors) != 1 {
				t.Fatalf("summary = %+v", sum)
			}
			rec := sum.Errors[0]
			best := max(tc.scores[0], tc.scores[1], tc.scores[2])
			want := game.ErrorDetails{Translation: tc.translation, Pronunciation: best >= 60, PronunciationScore: best}
			if rec.Kind != tc.want || rec.Details == nil || *rec.Details != want {
				t.Errorf("record = %+v details %+v, want %+v", rec, rec.Details, want)
			}
		})
	}
}

func TestSession_MaxAttempts(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	translate(t, s, true)
	attempt(t, s, 10)
	attempt(t, s, 10)
	if st := s.Snapshot(); st.Attempts != 2 || st.Resolved {
		t.Fatalf("state = %+v", st)
	}
	if out := attempt(t, s, 10); out == nil {
		t.Fatal("exhausting attempts did not resolve the word")
	}
	if err := s.CanRecord(); !errors.Is(err, game.ErrInvalidState) {
		t.Errorf("CanRecord after resolution = %v", err)
	}
}

func TestSession_SingleAttemptConfig(t *testing.T) {
	t.Parallel()

	s := game.NewSession(game.Config{MaxAttempts: 1})
	if err := s.Start([]string{"house"}, game.Easy); err != nil {
		t.Fatal(err)
	}
	translate(t, s, true)
	if _, err := s.BeginPronunciationAttempt(); err != nil {
		t.Fatal(err)
	}
	if err := s.CanRecord(); !errors.Is(err, game.ErrInvalidState) {
		t.Errorf("CanRecord while pending = %v", err)
	}
	if err := s.RetryPronunciation(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.BeginPronunciationAttempt(); err != nil {
		t.Fatalf("attempt after retry: %v", err)
	}
	if _, err := s.ApplyPronunciationResult(80); err != nil {
		t.Fatal(err)
	}
	if err := s.CanRecord(); err == nil {
		t.Error("CanRecord succeeded after the only attempt")
	}
}

func TestSession_RetryPronunciationUncountsAttempt(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	translate(t, s, true)
	ticks(s, 10)
	if _, err := s.BeginPronunciationAttempt(); err != nil {
		t.Fatal(err)
	}
	if err := s.RetryPronunciation(); err != nil {
		t.Fatalf("RetryPronunciation: %v", err)
	}
	st := s.Snapshot()
	if st.Attempts != 0 || st.Paused || st.Pending || st.RemainingMS != 7000 {
		t.Errorf("state = %+v, want 0 attempts, running at 7000ms", st)
	}
}

func TestSession_AbandonPronunciationKeepsBest(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	translate(t, s, true)
	attempt(t, s, 75)
	if _, err := s.BeginPronunciationAttempt(); err != nil {
		t.Fatal(err)
	}
	out, err := s.AbandonPronunciation()
	if err != nil {
		t.Fatalf("AbandonPronunciation: %v", err)
	}
	if !out.Correct || out.PronunciationScore != 75 {
		t.Errorf("outcome = %+v, want correct with best 75", *out)
	}
}

func TestSession_TranslationTimeout(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	if r := ticks(s, 79); r.TimedOut {
		t.Fatal("timed out early")
	}
	r := s.Tick()
	if !r.TimedOut || r.Outcome == nil || r.Seconds != 0 || r.Fraction != 0 {
		t.Fatalf("tick = %+v, want timeout", r)
	}
	if r.Outcome.Kind != game.KindTimeoutTranslation || r.Outcome.Correct {
		t.Errorf("outcome = %+v", *r.Outcome)
	}
	if again := ticks(s, 10); again.TimedOut || again.Counting {
		t.Errorf("timer kept running after timeout: %+v", again)
	}

	sum := s.Summary()
	if sum.Incorrect != 1 || sum.Correct != 0 {
		t.Errorf("tallies = %d/%d, want 0/1", sum.Correct, sum.Incorrect)
	}
	if len(sum.Errors) != 1 || sum.Errors[0].Kind != game.KindTimeoutTranslation {
		t.Errorf("errors = %+v, want one timeout-translation", sum.Errors)
	}
	if _, err := s.SubmitTranslation("casa"); !errors.Is(err, game.ErrInvalidState) {
		t.Errorf("submit after timeout err = %v", err)
	}
	if err := s.BeginPronunciation(); !errors.Is(err, game.ErrInvalidState) {
		t.Errorf("pronunciation after translation timeout err = %v", err)
	}
}

func TestSession_PronunciationTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		score     int
		correct   bool
		wantKinds []game.ErrorKind
	}{
		{name: "passing best", score: 70, correct: true, wantKinds: []game.ErrorKind{game.KindTimeoutPronunciation}},
		{name: "failing best", score: 30, wantKinds: []game.ErrorKind{game.KindTimeoutPronunciation, game.KindPronunciationFailed}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newSession(t)
			translate(t, s, true)
			attempt(t, s, tc.score)
			r := ticks(s, 80)
			if !r.TimedOut || r.Outcome == nil {
				t.Fatalf("tick = %+v, want timeout", r)
			}
			if r.Outcome.Correct != tc.correct || !r.Outcome.TimedOut {
				t.Errorf("outcome = %+v", *r.Outcome)
			}
			if tc.correct && r.Outcome.Points != 100 {
				t.Errorf("points = %d, want 100 with no time left", r.Outcome.Points)
			}
			var kinds []game.ErrorKind
			for _, e := range s.Summary().Errors {
				kinds = append(kinds, e.Kind)
			}
			if !reflect.DeepEqual(kinds, tc.wantKinds) {
				t.Errorf("error kinds = %v, want %v", kinds, tc.wantKinds)
			}
		})
	}
}

func TestSession_PauseResume(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	ticks(s, 10)
	s.Pause()
	if r := ticks(s, 50); r.Counting {
		t.Fatal("paused timer ticked")
	}
	s.Resume()
	if r := s.Tick(); r.Remaining != 6900*time.Millisecond {
		t.Errorf("remaining after resume = %v, want 6.9s", r.Remaining)
	}
}

func TestSession_HoldOutlastsGrading(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	s.Hold()
	translate(t, s, true)
	if r := s.Tick(); r.Counting {
		t.Fatal("pronunciation timer started while held")
	}
	if out := attempt(t, s, 40); out != nil {
		t.Fatalf("outcome after first attempt = %+v", out)
	}
	if r := s.Tick(); r.Counting {
		t.Fatal("graded attempt resumed a held timer")
	}
	if st := s.Snapshot(); !st.Held || !st.Paused {
		t.Errorf("state = %+v, want held and paused", st)
	}

	s.Release()
	if r := s.Tick(); !r.Counting {
		t.Error("timer did not restart after release")
	}
	if s.Held() {
		t.Error("still held after release")
	}
}

func TestSession_HoldIgnoredWhenIdle(t *testing.T) {
	t.Parallel()

	s := game.NewSession(game.DefaultConfig())
	s.Hold()
	if s.Held() {
		t.Fatal("idle session became held")
	}

	s = newSession(t)
	s.Hold()
	s.Reset()
	if s.Held() {
		t.Error("hold survived reset")
	}
}

func TestSession_ResumeNoopWhenInactive(t *testing.T) {
	t.Parallel()

	s := game.NewSession(game.DefaultConfig())
	s.Resume()
	if st := s.Snapshot(); st.Status != game.StatusIdle {
		t.Fatalf("status = %s", st.Status)
	}

	s = newSession(t)
	ticks(s, 80)
	s.Resume()
	if r := s.Tick(); r.Counting {
		t.Error("resume restarted an expired timer")
	}
}

func TestSession_AdvanceWord(t *testing.T) {
	t.Parallel()

	s := newSession(t, "house", "car")
	if _, err := s.AdvanceWord(); !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("advance before resolution err = %v", err)
	}

	ticks(s, 80)
	complete, err := s.AdvanceWord()
	if err != nil || complete {
		t.Fatalf("AdvanceWord = %v, %v", complete, err)
	}
	st := s.Snapshot()
	if st.Word != "car" || st.WordIndex != 1 || st.Phase != game.PhaseTranslation || st.RemainingMS != 8000 {
		t.Fatalf("state = %+v", st)
	}

	ticks(s, 80)
	if complete, err = s.AdvanceWord(); err != nil || !complete {
		t.Fatalf("AdvanceWord on last word = %v, %v", complete, err)
	}
	if st := s.Snapshot(); st.Status != game.StatusComplete || st.Word != "" {
		t.Errorf("state = %+v, want complete", st)
	}
	if r := s.Tick(); r.Counting {
		t.Error("complete session ticked")
	}

	if err := s.Start([]string{"book"}, game.Hard); err != nil {
		t.Fatalf("restart from complete: %v", err)
	}
	if sum := s.Summary(); sum.Incorrect != 0 || len(sum.Errors) != 0 {
		t.Errorf("restart kept tallies: %+v", sum)
	}
}

func TestSession_SummaryAccuracy(t *testing.T) {
	t.Parallel()

	vocab := make([]string, 40)
	for i := range vocab {
		vocab[i] = "house"
	}
	s := game.NewSession(game.DefaultConfig())
	if err := s.Start(vocab, game.Hard); err != nil {
		t.Fatal(err)
	}
	for i := range vocab {
		if i < 30 {
			translate(t, s, true)
			for range 3 {
				attempt(t, s, 90)
			}
		} else {
			ticks(s, 30)
		}
		if _, err := s.AdvanceWord(); err != nil {
			t.Fatalf("word %d: AdvanceWord: %v", i, err)
		}
	}

	sum := s.Summary()
	if sum.Accuracy != 75 || sum.WordCount != 40 || sum.Correct != 30 || sum.Incorrect != 10 {
		t.Errorf("summary = %+v, want 75%% of 40", sum)
	}
	if sum.Score != 30*200 {
		t.Errorf("score = %d, want %d", sum.Score, 30*200)
	}
}

func TestSession_Reset(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	ticks(s, 80)
	before := s.Activation()
	s.Reset()

	st := s.Snapshot()
	if st.Status != game.StatusIdle || st.WordCount != 0 || st.Incorrect != 0 || len(st.Errors) != 0 {
		t.Errorf("state after reset = %+v", st)
	}
	if s.Activation() <= before {
		t.Error("reset did not invalidate the activation")
	}
	if s.Summary().Accuracy != 0 {
		t.Error("accuracy of an empty game should be 0")
	}
}

func TestParseDifficulty(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"easy", "medium", "hard"} {
		if d, err := game.ParseDifficulty(in); err != nil || string(d) != in {
			t.Errorf("ParseDifficulty(%q) = %q, %v", in, d, err)
		}
	}
	if _, err := game.ParseDifficulty("extreme"); !errors.Is(err, game.ErrUnknownDifficulty) {
		t.Errorf("err = %v", err)
	}
}
