package config_test

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/translateblitz/internal/config"
	"github.com/MrWong99/translateblitz/pkg/provider/llm"
	llmmock "github.com/MrWong99/translateblitz/pkg/provider/llm/mock"
	"github.com/MrWong99/translateblitz/pkg/provider/stt"
	sttmock "github.com/MrWong99/translateblitz/pkg/provider/stt/mock"
	"github.com/MrWong99/translateblitz/pkg/provider/tts"
	ttsmock "github.com/MrWong99/translateblitz/pkg/provider/tts/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
  session_ttl: 10m
  max_sessions: 50
  rate_limit:
    rps: 5
    burst: 10
  display_delay: 1500ms

providers:
  llm:
    name: openrouter
    api_key: sk-or-v1-test
    model: anthropic/claude-3-haiku
    options:
      referer: https://blitz.example.com
  llm_fallback:
    name: anyllm
    model: llama3
    options:
      backend: ollama
  stt:
    name: whisper
    base_url: http://localhost:9000
  tts:
    name: coqui
    base_url: http://localhost:5002

game:
  passing_score: 70
  max_pronunciation_attempts: 2
  tick: 50ms
  difficulties:
    easy: 20s
    medium: 10s
    hard: 4s
  vocabulary_file: words.json

grading:
  timeout: 12s
  mode: local-fallback
  downgrade_on_transport: true
  max_concurrent: 4

settings:
  driver: sqlite
  dsn: /var/lib/blitz/settings.db

observe:
  metrics_addr: ":9464"
`

// ── YAML loading ──────────────────────────────────────────────────────────────

func TestLoadFromReader_Full(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":9090")
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level: got %q, want %q", cfg.Server.LogLevel, config.LogDebug)
	}
	if cfg.Server.SessionTTL != 10*time.Minute {
		t.Errorf("session_ttl: got %s, want 10m", cfg.Server.SessionTTL)
	}
	if cfg.Server.RateLimit.RPS != 5 || cfg.Server.RateLimit.Burst != 10 {
		t.Errorf("rate_limit: got %+v", cfg.Server.RateLimit)
	}
	if cfg.Server.DisplayDelay != 1500*time.Millisecond {
		t.Errorf("display_delay: got %s, want 1.5s", cfg.Server.DisplayDelay)
	}
	if cfg.Providers.LLM.Name != "openrouter" {
		t.Errorf("providers.llm.name: got %q", cfg.Providers.LLM.Name)
	}
	if got := cfg.Providers.LLM.Options["referer"]; got != "https://blitz.example.com" {
		t.Errorf("providers.llm.options.referer: got %v", got)
	}
	if cfg.Providers.LLMFallback.Options["backend"] != "ollama" {
		t.Errorf("providers.llm_fallback.options.backend: got %v", cfg.Providers.LLMFallback.Options["backend"])
	}
	if cfg.Game.PassingScore != 70 || cfg.Game.MaxPronunciationAttempts != 2 {
		t.Errorf("game rules: got %+v", cfg.Game)
	}
	if cfg.Game.Difficulties.Hard != 4*time.Second {
		t.Errorf("difficulties.hard: got %s, want 4s", cfg.Game.Difficulties.Hard)
	}
	if cfg.Grading.Mode != config.ModeLocalFallback {
		t.Errorf("grading.mode: got %q", cfg.Grading.Mode)
	}
	if cfg.Grading.Timeout != 12*time.Second {
		t.Errorf("grading.timeout: got %s", cfg.Grading.Timeout)
	}
	if cfg.Settings.Driver != config.DriverSQLite {
		t.Errorf("settings.driver: got %q", cfg.Settings.Driver)
	}
	if cfg.Observe.MetricsAddr != ":9464" {
		t.Errorf("observe.metrics_addr: got %q", cfg.Observe.MetricsAddr)
	}
}

func TestLoadFromReader_EmptyAppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"listen_addr", cfg.Server.ListenAddr, config.DefaultListenAddr},
		{"log_level", cfg.Server.LogLevel, config.LogInfo},
		{"session_ttl", cfg.Server.SessionTTL, config.DefaultSessionTTL},
		{"display_delay", cfg.Server.DisplayDelay, 2 * time.Second},
		{"passing_score", cfg.Game.PassingScore, 60},
		{"max_attempts", cfg.Game.MaxPronunciationAttempts, 3},
		{"tick", cfg.Game.Tick, 100 * time.Millisecond},
		{"easy", cfg.Game.Difficulties.Easy, 15 * time.Second},
		{"medium", cfg.Game.Difficulties.Medium, 8 * time.Second},
		{"hard", cfg.Game.Difficulties.Hard, 3 * time.Second},
		{"grading_timeout", cfg.Grading.Timeout, 30 * time.Second},
		{"grading_mode", cfg.Grading.Mode, config.ModeAIRequired},
		{"settings_driver", cfg.Settings.Driver, config.DriverMemory},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadFromReader_ExpandsEnv(t *testing.T) {
	t.Setenv("BLITZ_TEST_KEY", "sk-or-v1-from-env")
	yaml := `
providers:
  llm:
    name: openrouter
    api_key: ${BLITZ_TEST_KEY}
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.LLM.APIKey != "sk-or-v1-from-env" {
		t.Errorf("api_key: got %q, want expanded value", cfg.Providers.LLM.APIKey)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_adr: \":1\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadFromReader_InvalidYAML(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("server: [unterminated"))
	if err == nil {
		t.Fatal("expected error for malformed YAML, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load("/nonexistent/translateblitz.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

// ── Enum validity ─────────────────────────────────────────────────────────────

func TestEnums_IsValid(t *testing.T) {
	t.Parallel()
	if !config.LogWarn.IsValid() || config.LogLevel("verbose").IsValid() {
		t.Error("LogLevel.IsValid mismatch")
	}
	if !config.ModeMock.IsValid() || config.GradingMode("offline").IsValid() {
		t.Error("GradingMode.IsValid mismatch")
	}
	if !config.DriverPostgres.IsValid() || config.SettingsDriver("mysql").IsValid() {
		t.Error("SettingsDriver.IsValid mismatch")
	}
}

// ── Registry: unknown provider names ─────────────────────────────────────────

func TestRegistry_Unknown(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	entry := config.ProviderEntry{Name: "nonexistent"}

	if _, err := reg.CreateLLM(entry); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateLLM: expected ErrProviderNotRegistered, got %v", err)
	}
	if _, err := reg.CreateSTT(entry); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateSTT: expected ErrProviderNotRegistered, got %v", err)
	}
	if _, err := reg.CreateTTS(entry); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateTTS: expected ErrProviderNotRegistered, got %v", err)
	}
}

// ── Registry with registered factories ───────────────────────────────────────

func TestRegistry_RegisteredLLM(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	want := &llmmock.Provider{}
	var gotEntry config.ProviderEntry
	reg.RegisterLLM("stub", func(e config.ProviderEntry) (llm.Provider, error) {
		gotEntry = e
		return want, nil
	})
	got, err := reg.CreateLLM(config.ProviderEntry{Name: "stub", Model: "m1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
	if gotEntry.Model != "m1" {
		t.Errorf("factory received model %q, want m1", gotEntry.Model)
	}
}

func TestRegistry_RegisteredSTT(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	want := &sttmock.Provider{}
	reg.RegisterSTT("stub", func(e config.ProviderEntry) (stt.Provider, error) {
		return want, nil
	})
	got, err := reg.CreateSTT(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
}

func TestRegistry_RegisteredTTS(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	want := &ttsmock.Provider{}
	reg.RegisterTTS("stub", func(e config.ProviderEntry) (tts.Provider, error) {
		return want, nil
	})
	got, err := reg.CreateTTS(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	wantErr := errors.New("factory boom")
	reg.RegisterLLM("broken", func(e config.ProviderEntry) (llm.Provider, error) {
		return nil, wantErr
	})
	_, err := reg.CreateLLM(config.ProviderEntry{Name: "broken"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected factory error %v, got %v", wantErr, err)
	}
}

func TestRegistry_Overwrite(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	first, second := &llmmock.Provider{ModelName: "a"}, &llmmock.Provider{ModelName: "b"}
	reg.RegisterLLM("x", func(config.ProviderEntry) (llm.Provider, error) { return first, nil })
	reg.RegisterLLM("x", func(config.ProviderEntry) (llm.Provider, error) { return second, nil })

	got, err := reg.CreateLLM(config.ProviderEntry{Name: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != second {
		t.Error("later registration should win")
	}
}

func TestRegistry_Names(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	reg.RegisterLLM("openrouter", func(config.ProviderEntry) (llm.Provider, error) { return nil, nil })
	reg.RegisterLLM("mock", func(config.ProviderEntry) (llm.Provider, error) { return nil, nil })
	reg.RegisterTTS("coqui", func(config.ProviderEntry) (tts.Provider, error) { return nil, nil })

	names := reg.Names()
	if got := names["llm"]; !slices.Equal(got, []string{"mock", "openrouter"}) {
		t.Errorf("llm names = %v, want [mock openrouter]", got)
	}
	if got := names["stt"]; len(got) != 0 {
		t.Errorf("stt names = %v, want none", got)
	}
	if got := names["tts"]; !slices.Equal(got, []string{"coqui"}) {
		t.Errorf("tts names = %v, want [coqui]", got)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-or-v1-example")

	cfg, err := config.Load("../../configs/example.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.LLM.APIKey != "sk-or-v1-example" {
		t.Errorf("api_key = %q, want the expanded env value", cfg.Providers.LLM.APIKey)
	}
	if cfg.Grading.Mode != config.ModeAIRequired {
		t.Errorf("grading.mode = %q, want %q", cfg.Grading.Mode, config.ModeAIRequired)
	}
	if cfg.Settings.Driver != config.DriverSQLite {
		t.Errorf("settings.driver = %q, want sqlite", cfg.Settings.Driver)
	}
}
