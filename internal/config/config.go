// Package config provides the configuration schema, loader, provider registry
// and hot-reload watcher for the Translate Blitz server.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// GradingMode selects how grading failures are handled.
type GradingMode string

const (
	// ModeAIRequired surfaces remote grading failures to the player as a
	// retry-or-abandon decision.
	ModeAIRequired GradingMode = "ai-required"

	// ModeLocalFallback answers remote failures with the built-in heuristic.
	ModeLocalFallback GradingMode = "local-fallback"

	// ModeMock never calls a remote backend.
	ModeMock GradingMode = "mock"
)

// IsValid reports whether m is a recognised grading mode.
func (m GradingMode) IsValid() bool {
	switch m {
	case ModeAIRequired, ModeLocalFallback, ModeMock:
		return true
	}
	return false
}

// SettingsDriver selects the backend of the credential override store.
type SettingsDriver string

const (
	DriverMemory   SettingsDriver = "memory"
	DriverSQLite   SettingsDriver = "sqlite"
	DriverPostgres SettingsDriver = "postgres"
)

// IsValid reports whether d is a recognised settings driver.
func (d SettingsDriver) IsValid() bool {
	switch d {
	case DriverMemory, DriverSQLite, DriverPostgres:
		return true
	}
	return false
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Game      GameConfig      `yaml:"game"`
	Grading   GradingConfig   `yaml:"grading"`
	Settings  SettingsConfig  `yaml:"settings"`
	Observe   ObserveConfig   `yaml:"observe"`
}

// ServerConfig holds network, session and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP API listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// SessionTTL expires game sessions idle for longer than this.
	SessionTTL time.Duration `yaml:"session_ttl"`

	// MaxSessions bounds concurrently open game sessions. 0 means unlimited.
	MaxSessions int `yaml:"max_sessions"`

	// RateLimit throttles API requests per client IP.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// DisplayDelay is the pause between translation feedback and the
	// pronunciation phase.
	DisplayDelay time.Duration `yaml:"display_delay"`

	// AllowedOrigins lists extra host patterns (e.g. "*.example.com") allowed
	// to open event streams from another origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// StaticDir, when set, is served at "/" for the browser client.
	StaticDir string `yaml:"static_dir"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// RateLimitConfig configures a token bucket.
type RateLimitConfig struct {
	// RPS is the sustained request rate per client. 0 disables limiting.
	RPS float64 `yaml:"rps"`

	// Burst is the bucket size.
	Burst int `yaml:"burst"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation backs each external
// capability. Each field selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	// LLM is the primary grading backend.
	LLM ProviderEntry `yaml:"llm"`

	// LLMFallback is tried when the primary backend fails. Optional.
	LLMFallback ProviderEntry `yaml:"llm_fallback"`

	// STT transcribes uploaded audio for clients without in-browser speech
	// recognition. Optional.
	STT ProviderEntry `yaml:"stt"`

	// TTS synthesizes the word audio. Optional.
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openrouter", "whisper").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// GameConfig holds the rules of a game.
type GameConfig struct {
	// PassingScore is the lowest passing pronunciation score (0..100).
	PassingScore int `yaml:"passing_score"`

	// MaxPronunciationAttempts bounds recordings per word.
	MaxPronunciationAttempts int `yaml:"max_pronunciation_attempts"`

	// Tick is the timer decrement.
	Tick time.Duration `yaml:"tick"`

	// Difficulties maps each difficulty to its per-phase time limit.
	Difficulties DifficultiesConfig `yaml:"difficulties"`

	// VocabularyFile, when set, replaces the built-in word list.
	VocabularyFile string `yaml:"vocabulary_file"`
}

// DifficultiesConfig holds per-phase time limits.
type DifficultiesConfig struct {
	Easy   time.Duration `yaml:"easy"`
	Medium time.Duration `yaml:"medium"`
	Hard   time.Duration `yaml:"hard"`
}

// GradingConfig configures the grading service.
type GradingConfig struct {
	// Timeout bounds one remote grading call.
	Timeout time.Duration `yaml:"timeout"`

	// Mode selects the failure policy.
	Mode GradingMode `yaml:"mode"`

	// DowngradeOnTransport switches a session to local grading after the
	// first unreachable-backend error. Always on in local-fallback mode.
	DowngradeOnTransport bool `yaml:"downgrade_on_transport"`

	// MaxConcurrent bounds in-flight remote grading calls per process.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// SettingsConfig selects the credential override store.
type SettingsConfig struct {
	Driver SettingsDriver `yaml:"driver"`

	// DSN is the data source: a file path for sqlite, a connection URL for
	// postgres. Ignored for memory.
	DSN string `yaml:"dsn"`
}

// ObserveConfig holds observability settings.
type ObserveConfig struct {
	// MetricsAddr, when set, serves /metrics on a dedicated listener.
	// Otherwise /metrics is served by the API listener.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr    = ":8080"
	DefaultSessionTTL    = 30 * time.Minute
	DefaultDisplayDelay  = 2 * time.Second
	DefaultPassingScore  = 60
	DefaultMaxAttempts   = 3
	DefaultTick          = 100 * time.Millisecond
	DefaultEasyLimit     = 15 * time.Second
	DefaultMediumLimit   = 8 * time.Second
	DefaultHardLimit     = 3 * time.Second
	DefaultGradeTimeout  = 30 * time.Second
	DefaultMaxConcurrent = 8
)

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.ListenAddr == "" {
		s.ListenAddr = DefaultListenAddr
	}
	if s.LogLevel == "" {
		s.LogLevel = LogInfo
	}
	if s.SessionTTL == 0 {
		s.SessionTTL = DefaultSessionTTL
	}
	if s.DisplayDelay == 0 {
		s.DisplayDelay = DefaultDisplayDelay
	}

	g := &cfg.Game
	if g.PassingScore == 0 {
		g.PassingScore = DefaultPassingScore
	}
	if g.MaxPronunciationAttempts == 0 {
		g.MaxPronunciationAttempts = DefaultMaxAttempts
	}
	if g.Tick == 0 {
		g.Tick = DefaultTick
	}
	if g.Difficulties.Easy == 0 {
		g.Difficulties.Easy = DefaultEasyLimit
	}
	if g.Difficulties.Medium == 0 {
		g.Difficulties.Medium = DefaultMediumLimit
	}
	if g.Difficulties.Hard == 0 {
		g.Difficulties.Hard = DefaultHardLimit
	}

	gr := &cfg.Grading
	if gr.Timeout == 0 {
		gr.Timeout = DefaultGradeTimeout
	}
	if gr.Mode == "" {
		gr.Mode = ModeAIRequired
	}
	if gr.MaxConcurrent == 0 {
		gr.MaxConcurrent = DefaultMaxConcurrent
	}

	if cfg.Settings.Driver == "" {
		cfg.Settings.Driver = DriverMemory
	}
}
