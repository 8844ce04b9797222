package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/translateblitz/internal/app"
	"github.com/MrWong99/translateblitz/internal/config"
	"github.com/MrWong99/translateblitz/internal/game"
	"github.com/MrWong99/translateblitz/internal/game/mock"
)

// fakeNow is a settable wall clock.
type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newManager(t *testing.T, cfg app.SessionManagerConfig) *app.SessionManager {
	t.Helper()
	a := newApp(t, testConfig(config.ModeMock), nil)
	cfg.Metrics = testMetrics(t)
	sm := app.NewSessionManager(a, cfg)
	t.Cleanup(func() { sm.CloseAll() })
	return sm
}

func TestSessionManager_CreateGetClose(t *testing.T) {
	t.Parallel()
	sm := newManager(t, app.SessionManagerConfig{})

	s, err := sm.Create(context.Background(), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ID() == "" {
		t.Fatal("session id is empty")
	}
	if sm.Len() != 1 {
		t.Errorf("Len = %d, want 1", sm.Len())
	}

	got, err := sm.Get(s.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session")
	}

	if err := sm.Close(s.ID()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := sm.Get(s.ID()); !errors.Is(err, app.ErrSessionNotFound) {
		t.Errorf("Get after close: got %v, want ErrSessionNotFound", err)
	}
	if err := sm.Close(s.ID()); !errors.Is(err, app.ErrSessionNotFound) {
		t.Errorf("second Close: got %v, want ErrSessionNotFound", err)
	}
	if _, err := s.Runner.Snapshot(context.Background()); !errors.Is(err, game.ErrClosed) {
		t.Errorf("runner of closed session: got %v, want ErrClosed", err)
	}
}

func TestSessionManager_UniqueIDs(t *testing.T) {
	t.Parallel()
	sm := newManager(t, app.SessionManagerConfig{})

	seen := make(map[string]bool)
	for range 5 {
		s, err := sm.Create(context.Background(), nil)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seen[s.ID()] {
			t.Fatalf("duplicate session id %q", s.ID())
		}
		seen[s.ID()] = true
	}
}

func TestSessionManager_MaxSessions(t *testing.T) {
	t.Parallel()
	sm := newManager(t, app.SessionManagerConfig{MaxSessions: 2})
	ctx := context.Background()

	for range 2 {
		if _, err := sm.Create(ctx, nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := sm.Create(ctx, nil); !errors.Is(err, app.ErrTooManySessions) {
		t.Errorf("third Create: got %v, want ErrTooManySessions", err)
	}
}

func TestSessionManager_Reap(t *testing.T) {
	t.Parallel()
	clock := &fakeNow{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	sm := newManager(t, app.SessionManagerConfig{TTL: 10 * time.Minute, Now: clock.Now})
	ctx := context.Background()

	idle, err := sm.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	busy, err := sm.Create(ctx, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	clock.Advance(6 * time.Minute)
	if _, err := sm.Get(busy.ID()); err != nil {
		t.Fatalf("Get: %v", err)
	}
	clock.Advance(6 * time.Minute)

	if n := sm.Reap(); n != 1 {
		t.Fatalf("Reap() = %d, want 1", n)
	}
	if _, err := sm.Get(idle.ID()); !errors.Is(err, app.ErrSessionNotFound) {
		t.Errorf("idle session should be expired, Get = %v", err)
	}
	if _, err := sm.Get(busy.ID()); err != nil {
		t.Errorf("busy session should survive, Get = %v", err)
	}
}

func TestSessionManager_ReapDisabled(t *testing.T) {
	t.Parallel()
	sm := newManager(t, app.SessionManagerConfig{})
	if _, err := sm.Create(context.Background(), nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n := sm.Reap(); n != 0 {
		t.Errorf("Reap() without TTL = %d, want 0", n)
	}
}

func TestSessionManager_PlaysWithPresenter(t *testing.T) {
	t.Parallel()
	sm := newManager(t, app.SessionManagerConfig{})
	ctx := context.Background()

	p := mock.NewPresenter()
	var gotID string
	s, err := sm.Create(ctx, func(id string) game.Presenter {
		gotID = id
		return p
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if gotID != s.ID() {
		t.Errorf("presenter factory got id %q, want %q", gotID, s.ID())
	}

	if err := s.Runner.Start(ctx, []string{"house"}, game.Medium); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Runner.SubmitTranslation(ctx, "casa"); err != nil {
		t.Fatalf("SubmitTranslation: %v", err)
	}
	if !p.WaitFor(game.EventTranslationFeedback, 1, 2*time.Second) {
		t.Fatal("no translation feedback presented")
	}
	st, err := s.Runner.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !st.TranslationCorrect {
		t.Error("mock grading should accept the translation")
	}
}

func TestSessionManager_CloseAll(t *testing.T) {
	t.Parallel()
	sm := newManager(t, app.SessionManagerConfig{})
	for range 3 {
		if _, err := sm.Create(context.Background(), nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := sm.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if sm.Len() != 0 {
		t.Errorf("Len after CloseAll = %d, want 0", sm.Len())
	}
}
