package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/translateblitz/internal/game"
	"github.com/MrWong99/translateblitz/internal/grading"
	"github.com/MrWong99/translateblitz/internal/observe"
	"github.com/MrWong99/translateblitz/internal/speech"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("app: session not found")

	// ErrTooManySessions is returned by [SessionManager.Create] when the
	// configured session limit is reached.
	ErrTooManySessions = errors.New("app: too many sessions")
)

// Session is one player's game: a runner with its own grading service and
// the recorder the player's browser submits speech results to.
type Session struct {
	id        string
	createdAt time.Time
	active    atomic.Int64 // unix nanos of the last request

	Runner    *game.Runner
	Grader    *grading.Service
	Recorder  *speech.ClientRecorder
	Presenter game.Presenter

	closeOnce sync.Once
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastActive returns the time of the last request that touched the session.
func (s *Session) LastActive() time.Time { return time.Unix(0, s.active.Load()) }

func (s *Session) touch(now time.Time) { s.active.Store(now.UnixNano()) }

// close stops the runner and releases the presenter. Safe to call twice.
func (s *Session) close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.Runner.Close()
		s.Recorder.Drain()
		if c, ok := s.Presenter.(io.Closer); ok {
			err = errors.Join(err, c.Close())
		}
	})
	return err
}

// SessionManagerConfig holds the limits of a [SessionManager].
type SessionManagerConfig struct {
	// TTL expires sessions idle for longer. 0 disables expiry.
	TTL time.Duration

	// MaxSessions bounds open sessions. 0 means unlimited.
	MaxSessions int

	Metrics *observe.Metrics

	// Now overrides the wall clock used for idle tracking.
	Now func() time.Time
}

// SessionManager owns the open game sessions.
// All exported methods are safe for concurrent use.
type SessionManager struct {
	app     *App
	ttl     time.Duration
	max     int
	metrics *observe.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates a SessionManager drawing graders, rules and
// clock from a.
func NewSessionManager(a *App, cfg SessionManagerConfig) *SessionManager {
	sm := &SessionManager{
		app:      a,
		ttl:      cfg.TTL,
		max:      cfg.MaxSessions,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
		sessions: make(map[string]*Session),
	}
	if sm.metrics == nil {
		sm.metrics = observe.DefaultMetrics()
	}
	if sm.now == nil {
		sm.now = time.Now
	}
	return sm
}

// Create opens a new idle session. newPresenter is called with the new
// session id and receives every game event of the session.
func (sm *SessionManager) Create(ctx context.Context, newPresenter func(id string) game.Presenter) (*Session, error) {
	id := uuid.NewString()
	logger := slog.Default().With("session_id", id)

	grader, err := sm.app.NewGrader(logger)
	if err != nil {
		return nil, err
	}

	sm.mu.Lock()
	if sm.max > 0 && len(sm.sessions) >= sm.max {
		sm.mu.Unlock()
		return nil, fmt.Errorf("%w (limit %d)", ErrTooManySessions, sm.max)
	}
	var p game.Presenter = game.NopPresenter{}
	if newPresenter != nil {
		p = newPresenter(id)
	}
	now := sm.now()
	s := &Session{
		id:        id,
		createdAt: now,
		Grader:    grader,
		Recorder:  speech.NewClientRecorder(),
		Presenter: p,
		Runner: game.NewRunner(sm.app.GameConfig(), grader, p,
			game.WithClock(sm.app.Clock()),
			game.WithDisplayDelay(sm.app.Config().Server.DisplayDelay),
			game.WithMetrics(sm.metrics),
			game.WithLogger(logger),
		),
	}
	s.touch(now)
	sm.sessions[id] = s
	sm.mu.Unlock()

	sm.metrics.ActiveSessions.Add(ctx, 1)
	logger.Info("session created", "mode", sm.app.Config().Grading.Mode)
	return s, nil
}

// Get returns the session with id and marks it active.
func (sm *SessionManager) Get(id string) (*Session, error) {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	sm.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(sm.now())
	return s, nil
}

// Close ends and forgets the session with id.
func (sm *SessionManager) Close(id string) error {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sm.metrics.ActiveSessions.Add(context.Background(), -1)
	slog.Info("session closed", "session_id", id)
	return s.close()
}

// Len returns the number of open sessions.
func (sm *SessionManager) Len() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// Reap closes every session idle for longer than the TTL and returns how
// many were closed.
func (sm *SessionManager) Reap() int {
	if sm.ttl <= 0 {
		return 0
	}
	cutoff := sm.now().Add(-sm.ttl)

	sm.mu.Lock()
	var expired []*Session
	for id, s := range sm.sessions {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, s)
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	for _, s := range expired {
		sm.metrics.ActiveSessions.Add(context.Background(), -1)
		if err := s.close(); err != nil {
			slog.Warn("session close error", "session_id", s.id, "err", err)
		}
		slog.Info("session expired", "session_id", s.id, "idle_since", s.LastActive())
	}
	return len(expired)
}

// RunReaper calls [SessionManager.Reap] every interval until ctx is done.
// An interval <= 0 uses a quarter of the TTL.
func (sm *SessionManager) RunReaper(ctx context.Context, interval time.Duration) {
	if sm.ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = sm.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.Reap()
		}
	}
}

// CloseAll closes every open session.
func (sm *SessionManager) CloseAll() error {
	sm.mu.Lock()
	all := sm.sessions
	sm.sessions = make(map[string]*Session)
	sm.mu.Unlock()

	var errs []error
	for _, s := range all {
		sm.metrics.ActiveSessions.Add(context.Background(), -1)
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.id, err))
		}
	}
	return errors.Join(errs...)
}
