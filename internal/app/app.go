// Package app wires the Translate Blitz subsystems into a running application.
//
// The App struct owns the shared pieces every game session draws from: the
// grading backends (one bulkheaded remote grader per process), the settings
// store with the credential override, the vocabulary and the session
// manager. New builds them from the config, [App.Reload] applies hot-reloaded
// config, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithSettingsStore,
// WithClock, WithMetrics, ...). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/MrWong99/translateblitz/internal/config"
	"github.com/MrWong99/translateblitz/internal/game"
	"github.com/MrWong99/translateblitz/internal/grading"
	"github.com/MrWong99/translateblitz/internal/health"
	"github.com/MrWong99/translateblitz/internal/observe"
	"github.com/MrWong99/translateblitz/internal/resilience"
	"github.com/MrWong99/translateblitz/internal/settings"
	"github.com/MrWong99/translateblitz/internal/vocabulary"
	"github.com/MrWong99/translateblitz/pkg/provider/llm"
	"github.com/MrWong99/translateblitz/pkg/provider/stt"
	"github.com/MrWong99/translateblitz/pkg/provider/tts"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	LLM         llm.Provider
	LLMFallback llm.Provider
	STT         stt.Provider
	TTS         tts.Provider
}

// App owns all subsystem lifetimes.
type App struct {
	providers *Providers
	store     settings.Store
	creds     *settings.Credentials
	metrics   *observe.Metrics
	clock     game.Clock
	level     *slog.LevelVar

	// backends is nil when no LLM provider is configured.
	backends *resilience.LLMFallback
	remote   *grading.Remote

	sessions *SessionManager

	mu    sync.RWMutex
	cfg   *config.Config
	vocab []string

	rndMu sync.Mutex
	rnd   *rand.Rand

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSettingsStore injects a settings store instead of opening one from
// config. The caller keeps ownership; Shutdown does not close it.
func WithSettingsStore(s settings.Store) Option {
	return func(a *App) { a.store = s }
}

// WithCredentials injects the credential resolver. By default one is built
// over the settings store with providers.llm.api_key as fallback.
func WithCredentials(c *settings.Credentials) Option {
	return func(a *App) { a.creds = c }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithClock sets the clock game runners use. Default: [game.RealClock].
func WithClock(c game.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithRand makes vocabulary shuffles reproducible.
func WithRand(r *rand.Rand) Option {
	return func(a *App) { a.rnd = r }
}

// WithLevelVar lets [App.Reload] change the process log level.
func WithLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// New creates an App from cfg. The providers struct comes from main.go
// (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.clock == nil {
		a.clock = game.RealClock{}
	}

	// ── 1. Settings store ────────────────────────────────────────────────
	if a.store == nil {
		s, err := settings.Open(ctx, string(cfg.Settings.Driver), cfg.Settings.DSN)
		if err != nil {
			return nil, fmt.Errorf("app: open settings: %w", err)
		}
		a.store = s
		a.closers = append(a.closers, s.Close)
	}
	if a.creds == nil {
		a.creds = settings.NewCredentials(a.store, cfg.Providers.LLM.APIKey)
	}

	// ── 2. Grading backends ──────────────────────────────────────────────
	a.initGrading()

	// ── 3. Vocabulary ────────────────────────────────────────────────────
	a.vocab = loadVocabulary(cfg)

	// ── 4. Sessions ──────────────────────────────────────────────────────
	a.sessions = NewSessionManager(a, SessionManagerConfig{
		TTL:         cfg.Server.SessionTTL,
		MaxSessions: cfg.Server.MaxSessions,
		Metrics:     a.metrics,
	})
	a.closers = append([]func() error{a.sessions.CloseAll}, a.closers...)

	return a, nil
}

// initGrading puts the configured LLM backends behind a circuit-breaking
// failover group and a single bulkheaded remote grader shared by all
// sessions.
func (a *App) initGrading() {
	if a.providers.LLM == nil {
		return
	}
	a.backends = resilience.NewLLMFallback(a.providers.LLM, a.cfg.Providers.LLM.Name, resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			IsFailure: grading.BackendFailure,
			OnStateChange: func(name string, from, to resilience.State) {
				if to == resilience.StateOpen {
					slog.Warn("grading backend circuit opened", "backend", name, "from", from.String())
				}
				a.metrics.RecordBreakerTransition(context.Background(), name, from.String(), to.String())
			},
		},
	})
	if a.providers.LLMFallback != nil {
		a.backends.AddFallback(a.cfg.Providers.LLMFallback.Name, a.providers.LLMFallback)
	}
	a.remote = grading.NewRemote(a.backends,
		grading.WithMaxConcurrent(a.cfg.Grading.MaxConcurrent),
		grading.WithMetrics(a.metrics),
	)
}

func loadVocabulary(cfg *config.Config) []string {
	if cfg.Game.VocabularyFile != "" {
		return vocabulary.LoadFile(cfg.Game.VocabularyFile)
	}
	return vocabulary.Default()
}

// Config returns the current configuration.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// GameConfig returns the rules new games are played with.
func (a *App) GameConfig() game.Config {
	cfg := a.Config()
	return GameConfig(cfg)
}

// GameConfig maps the game section of cfg to [game.Config].
func GameConfig(cfg *config.Config) game.Config {
	g := cfg.Game
	return game.Config{
		Limits: map[game.Difficulty]time.Duration{
			game.Easy:   g.Difficulties.Easy,
			game.Medium: g.Difficulties.Medium,
			game.Hard:   g.Difficulties.Hard,
		},
		Tick:         g.Tick,
		MaxAttempts:  g.MaxPronunciationAttempts,
		PassingScore: g.PassingScore,
	}
}

// NewGrader returns a grading service for one game session. Each session
// gets its own cache and downgrade state; the remote grader and its
// concurrency bound are shared.
func (a *App) NewGrader(logger *slog.Logger) (*grading.Service, error) {
	cfg := a.Config()
	policy, err := grading.PolicyFor(grading.Mode(cfg.Grading.Mode), cfg.Grading.DowngradeOnTransport)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	var remote grading.Grader
	switch {
	case a.remote != nil:
		remote = a.remote
	case policy.AIRequired:
		remote = noBackend{}
	}
	opts := []grading.ServiceOption{
		grading.WithTimeout(cfg.Grading.Timeout),
		grading.WithPassingScore(cfg.Game.PassingScore),
		grading.WithServiceMetrics(a.metrics),
	}
	if logger != nil {
		opts = append(opts, grading.WithLogger(logger))
	}
	svc, err := grading.NewService(remote, policy, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return svc, nil
}

// Vocabulary returns a shuffled copy of the configured word list.
func (a *App) Vocabulary() []string {
	a.mu.RLock()
	words := a.vocab
	a.mu.RUnlock()
	return a.Shuffle(words)
}

// Shuffle returns a shuffled copy of words, using the app's random source.
func (a *App) Shuffle(words []string) []string {
	a.rndMu.Lock()
	defer a.rndMu.Unlock()
	return vocabulary.Shuffle(words, a.rnd)
}

// noBackend stands in for the remote grader of ai-required sessions when no
// LLM provider is configured. Every call fails, so those games refuse to
// start with an unavailable error.
type noBackend struct{}

var errNoBackend = errors.New("no grading backend configured")

func (noBackend) GradeTranslation(context.Context, string, string) (grading.TranslationResult, error) {
	return grading.TranslationResult{}, errNoBackend
}

func (noBackend) GradePronunciation(context.Context, string, string, int) (grading.PronunciationResult, error) {
	return grading.PronunciationResult{}, errNoBackend
}

// Providers returns the configured providers.
func (a *App) Providers() *Providers { return a.providers }

// Store returns the settings store.
func (a *App) Store() settings.Store { return a.store }

// Credentials returns the credential resolver.
func (a *App) Credentials() *settings.Credentials { return a.creds }

// Metrics returns the metrics sink.
func (a *App) Metrics() *observe.Metrics { return a.metrics }

// Clock returns the clock game runners use.
func (a *App) Clock() game.Clock { return a.clock }

// Sessions returns the session manager.
func (a *App) Sessions() *SessionManager { return a.sessions }

// Checkers returns the readiness checks of the application.
func (a *App) Checkers() []health.Checker {
	var avail health.Availability
	if a.backends != nil {
		avail = a.backends
	}
	return []health.Checker{health.Store(a.store), health.Grading(avail)}
}

// Reload applies a hot-reloaded config. Running games keep their rules;
// changes that need a restart are logged and otherwise ignored.
func (a *App) Reload(old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Changed() {
		return
	}

	if d.LogLevelChanged && a.level != nil {
		a.level.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.LLMChanged {
		d.Restart = append(d.Restart, "providers.llm")
	}
	for _, field := range d.Restart {
		slog.Warn("config change requires a restart to take effect", "field", field)
	}

	// Only the hot-reloadable sections are taken over.
	a.mu.Lock()
	cur := *a.cfg
	cur.Server.LogLevel = new.Server.LogLevel
	cur.Server.DisplayDelay = new.Server.DisplayDelay
	cur.Game = new.Game
	cur.Grading.Mode = new.Grading.Mode
	cur.Grading.Timeout = new.Grading.Timeout
	cur.Grading.DowngradeOnTransport = new.Grading.DowngradeOnTransport
	if d.GameChanged && old.Game.VocabularyFile != new.Game.VocabularyFile {
		a.vocab = loadVocabulary(new)
	}
	a.cfg = &cur
	a.mu.Unlock()

	if d.GameChanged || d.GradingChanged {
		slog.Info("configuration reloaded, applies to games started from now on",
			"game_changed", d.GameChanged,
			"grading_changed", d.GradingChanged,
		)
	}
}

// SlogLevel maps a config log level to its slog level. Unknown levels map
// to info.
func SlogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		for _, c := range a.closers {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				return
			}
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
