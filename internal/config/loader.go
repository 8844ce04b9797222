package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openrouter", "openai", "anyllm", "mock"},
	"stt": {"whisper", "mock"},
	"tts": {"coqui", "mock"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. ${VAR} references are expanded from the environment before
// decoding so secrets can stay out of the file.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	s := cfg.Server
	if s.LogLevel != "" && !s.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", s.LogLevel))
	}
	if s.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("server.session_ttl %s must not be negative", s.SessionTTL))
	}
	if s.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("server.max_sessions %d must not be negative", s.MaxSessions))
	}
	if s.RateLimit.RPS < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit.rps %.2f must not be negative", s.RateLimit.RPS))
	}
	if s.RateLimit.RPS > 0 && s.RateLimit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit.burst must be positive when rps is set"))
	}
	if s.DisplayDelay < 0 {
		errs = append(errs, fmt.Errorf("server.display_delay %s must not be negative", s.DisplayDelay))
	}
	if s.TLS != nil && (s.TLS.CertFile == "" || s.TLS.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Providers
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("llm", cfg.Providers.LLMFallback.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	if cfg.Providers.LLMFallback.Name != "" && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm_fallback requires providers.llm"))
	}

	// Game
	g := cfg.Game
	if g.PassingScore < 0 || g.PassingScore > 100 {
		errs = append(errs, fmt.Errorf("game.passing_score %d is out of range [0, 100]", g.PassingScore))
	}
	if g.MaxPronunciationAttempts < 0 {
		errs = append(errs, fmt.Errorf("game.max_pronunciation_attempts %d must not be negative", g.MaxPronunciationAttempts))
	}
	if g.Tick < 0 {
		errs = append(errs, fmt.Errorf("game.tick %s must not be negative", g.Tick))
	}
	for name, limit := range map[string]int64{
		"easy":   int64(g.Difficulties.Easy),
		"medium": int64(g.Difficulties.Medium),
		"hard":   int64(g.Difficulties.Hard),
	} {
		if limit < 0 {
			errs = append(errs, fmt.Errorf("game.difficulties.%s must not be negative", name))
		} else if g.Tick > 0 && limit > 0 && limit < int64(g.Tick) {
			errs = append(errs, fmt.Errorf("game.difficulties.%s is shorter than game.tick", name))
		}
	}

	// Grading
	gr := cfg.Grading
	if gr.Mode != "" && !gr.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("grading.mode %q is invalid; valid values: ai-required, local-fallback, mock", gr.Mode))
	}
	if gr.Timeout < 0 {
		errs = append(errs, fmt.Errorf("grading.timeout %s must not be negative", gr.Timeout))
	}
	if gr.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("grading.max_concurrent %d must not be negative", gr.MaxConcurrent))
	}
	if gr.Mode == ModeAIRequired && cfg.Providers.LLM.Name == "" {
		slog.Warn("grading.mode is ai-required but providers.llm is not configured; games will refuse to start")
	}

	// Settings
	st := cfg.Settings
	if st.Driver != "" && !st.Driver.IsValid() {
		errs = append(errs, fmt.Errorf("settings.driver %q is invalid; valid values: memory, sqlite, postgres", st.Driver))
	}
	if (st.Driver == DriverSQLite || st.Driver == DriverPostgres) && st.DSN == "" {
		errs = append(errs, fmt.Errorf("settings.dsn is required when driver is %s", st.Driver))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
