package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/translateblitz/internal/observe"
)

const (
	// DefaultTimeout bounds one remote grading call.
	DefaultTimeout = 30 * time.Second
	// DefaultPassingScore is the lowest pronunciation score that passes.
	DefaultPassingScore = 60
)

// Mode names a deployment fallback policy.
type Mode string

const (
	ModeAIRequired    Mode = "ai-required"
	ModeLocalFallback Mode = "local-fallback"
	ModeMock          Mode = "mock"
)

// Policy selects how a [Service] reacts to remote failures.
type Policy struct {
	// AIRequired surfaces remote failures as [*Error] instead of answering
	// locally.
	AIRequired bool
	// LocalFallback answers remote failures with the [Heuristic] grader.
	LocalFallback bool
	// MockMode answers every call with the [Mock] grader.
	MockMode bool
	// DowngradeOnTransport switches the session to local grading for good
	// after the first transport-class failure.
	DowngradeOnTransport bool
}

// PolicyFor returns the policy of mode. Downgrade is always on for
// local-fallback; for ai-required it follows downgrade.
func PolicyFor(mode Mode, downgrade bool) (Policy, error) {
	switch mode {
	case ModeAIRequired:
		return Policy{AIRequired: true, DowngradeOnTransport: downgrade}, nil
	case ModeLocalFallback:
		return Policy{LocalFallback: true, DowngradeOnTransport: true}, nil
	case ModeMock:
		return Policy{MockMode: true}, nil
	default:
		return Policy{}, fmt.Errorf("grading: unknown mode %q", mode)
	}
}

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithTimeout sets the per-call deadline. Default: [DefaultTimeout].
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

// WithPassingScore sets the threshold used by [Service.Passed].
// Default: [DefaultPassingScore].
func WithPassingScore(score int) ServiceOption {
	return func(s *Service) { s.passingScore = score }
}

// WithLocal replaces the local fallback grader. Default: [NewHeuristic].
func WithLocal(g Grader) ServiceOption {
	return func(s *Service) { s.local = g }
}

// WithMock replaces the grader used in mock mode. Default: [NewMock].
func WithMock(g Grader) ServiceOption {
	return func(s *Service) { s.mock = g }
}

// WithServiceMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithServiceMetrics(m *observe.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger. Default: [slog.Default].
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// Service is the grading entry point of one game session. It is safe for
// concurrent use, though a session normally grades one input at a time.
type Service struct {
	remote       Grader
	local        Grader
	mock         Grader
	policy       Policy
	timeout      time.Duration
	passingScore int
	cache        *Cache
	metrics      *observe.Metrics
	logger       *slog.Logger

	mu         sync.Mutex
	downgraded bool
	// gen counts resets; results of calls started before the last reset
	// are returned but neither cached nor allowed to downgrade.
	gen uint64
}

var _ Grader = (*Service)(nil)

// NewService creates a [Service] with a fresh cache. remote may be nil only
// when the policy never needs it.
func NewService(remote Grader, policy Policy, opts ...ServiceOption) (*Service, error) {
	if remote == nil && !policy.MockMode && !policy.LocalFallback {
		return nil, errors.New("grading: remote grader is required in ai-required mode")
	}
	s := &Service{
		remote:       remote,
		policy:       policy,
		timeout:      DefaultTimeout,
		passingScore: DefaultPassingScore,
		cache:        NewCache(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.local == nil {
		s.local = NewHeuristic()
	}
	if s.mock == nil {
		s.mock = NewMock()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Policy returns the configured policy.
func (s *Service) Policy() Policy { return s.policy }

// Cache returns the session cache.
func (s *Service) Cache() *Cache { return s.cache }

// Passed reports whether a pronunciation score reaches the passing score.
func (s *Service) Passed(score int) bool { return score >= s.passingScore }

// PassingScore returns the configured passing score.
func (s *Service) PassingScore() int { return s.passingScore }

// Downgraded reports whether a transport failure switched this session to
// local grading.
func (s *Service) Downgraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downgraded
}

// Reset forgets every cached verdict and a transport downgrade, so the next
// game starts from a clean slate. Calls still in flight complete normally
// but their verdicts are not cached.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.downgraded = false
	s.cache.Clear()
}

func (s *Service) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// CanAnswerLocally reports whether a remote failure would still produce a
// verdict.
func (s *Service) CanAnswerLocally() bool {
	return s.policy.MockMode || s.policy.LocalFallback || s.Downgraded() || s.remote == nil
}

// GradeTranslation implements [Grader].
func (s *Service) GradeTranslation(ctx context.Context, word, text string) (TranslationResult, error) {
	return grade(ctx, s, NewKey(KindTranslation, word, text),
		s.cache.Translation, s.cache.PutTranslation,
		func(ctx context.Context, g Grader) (TranslationResult, error) {
			return g.GradeTranslation(ctx, word, text)
		})
}

// GradePronunciation implements [Grader].
func (s *Service) GradePronunciation(ctx context.Context, word, spoken string, confidence int) (PronunciationResult, error) {
	return grade(ctx, s, NewKey(KindPronunciation, word, spoken),
		s.cache.Pronunciation, s.cache.PutPronunciation,
		func(ctx context.Context, g Grader) (PronunciationResult, error) {
			r, err := g.GradePronunciation(ctx, word, spoken, confidence)
			return r.clamp(), err
		})
}

// CheckAvailability asks the remote grader to grade a known translation. The
// check bypasses the cache. It always succeeds in mock mode.
func (s *Service) CheckAvailability(ctx context.Context) error {
	if s.policy.MockMode {
		return nil
	}
	if s.remote == nil {
		return &Error{Kind: KindTranslation, Class: ClassUnavailable, Err: errors.New("no remote grader configured")}
	}
	gen := s.generation()
	_, err := callWithDeadline(ctx, s.timeout, func(ctx context.Context) (TranslationResult, error) {
		return s.remote.GradeTranslation(ctx, "test", "prueba")
	})
	if err == nil {
		return nil
	}
	class := classify(err)
	s.maybeDowngrade(gen, class, err)
	return &Error{Kind: KindTranslation, Class: class, Err: err}
}

func grade[T any](
	ctx context.Context,
	s *Service,
	key Key,
	lookup func(Key) (T, bool),
	store func(Key, T) T,
	call func(context.Context, Grader) (T, error),
) (T, error) {
	kind := string(key.Kind)
	gen := s.generation()
	if r, ok := lookup(key); ok {
		s.metrics.RecordCacheHit(ctx, kind)
		return r, nil
	}

	if s.policy.MockMode {
		return answerLocally(ctx, s, gen, key, s.mock, "mock", store, call)
	}
	if s.remote == nil || s.Downgraded() {
		return answerLocally(ctx, s, gen, key, s.local, "downgraded", store, call)
	}

	r, err := callWithDeadline(ctx, s.timeout, func(ctx context.Context) (T, error) {
		return call(ctx, s.remote)
	})
	if err == nil {
		return keep(s, gen, key, r, store), nil
	}

	var zero T
	if ctx.Err() != nil {
		// The session went away; nobody is waiting for a verdict.
		return zero, fmt.Errorf("grading: %s: %w", kind, ctx.Err())
	}

	class := classify(err)
	s.maybeDowngrade(gen, class, err)
	if s.policy.LocalFallback || s.Downgraded() {
		observe.Logger(ctx).Warn("remote grading failed, answering locally",
			"kind", kind, "word", key.Word, "class", class, "err", err)
		return answerLocally(ctx, s, gen, key, s.local, string(class), store, call)
	}
	return zero, &Error{Kind: key.Kind, Class: class, Err: err}
}

// answerLocally grades with g, which never fails, and caches the verdict.
func answerLocally[T any](
	ctx context.Context,
	s *Service,
	gen uint64,
	key Key,
	g Grader,
	reason string,
	store func(Key, T) T,
	call func(context.Context, Grader) (T, error),
) (T, error) {
	start := time.Now()
	r, err := call(ctx, g)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("grading: local %s: %w", key.Kind, err)
	}
	s.metrics.RecordGrade(ctx, string(key.Kind), "local", "fallback", time.Since(start))
	s.metrics.RecordFallback(ctx, string(key.Kind), reason)
	return keep(s, gen, key, r, store), nil
}

// keep caches r unless the service was reset after the call began.
func keep[T any](s *Service, gen uint64, key Key, r T, store func(Key, T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return r
	}
	return store(key, r)
}

// maybeDowngrade switches the session to local grading on the first
// transport-class failure when the policy allows it. A failure of a call
// started before the last reset is ignored.
func (s *Service) maybeDowngrade(gen uint64, class Class, err error) {
	if class != ClassTransport || !s.policy.DowngradeOnTransport {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downgraded || s.gen != gen {
		return
	}
	s.downgraded = true
	s.logger.Warn("grading backend unreachable, switching session to local grading", "err", err)
}

// callWithDeadline runs fn and returns no later than d after the call. A
// result that arrives after the deadline is dropped.
func callWithDeadline[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
