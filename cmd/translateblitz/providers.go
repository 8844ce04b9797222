package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/translateblitz/internal/app"
	"github.com/MrWong99/translateblitz/internal/config"
	"github.com/MrWong99/translateblitz/internal/settings"
	"github.com/MrWong99/translateblitz/pkg/audio"
	"github.com/MrWong99/translateblitz/pkg/provider/llm"
	"github.com/MrWong99/translateblitz/pkg/provider/llm/anyllm"
	llmmock "github.com/MrWong99/translateblitz/pkg/provider/llm/mock"
	"github.com/MrWong99/translateblitz/pkg/provider/llm/openai"
	"github.com/MrWong99/translateblitz/pkg/provider/stt"
	sttmock "github.com/MrWong99/translateblitz/pkg/provider/stt/mock"
	"github.com/MrWong99/translateblitz/pkg/provider/stt/whisper"
	"github.com/MrWong99/translateblitz/pkg/provider/tts"
	"github.com/MrWong99/translateblitz/pkg/provider/tts/coqui"
	ttsmock "github.com/MrWong99/translateblitz/pkg/provider/tts/mock"
)

const (
	defaultOpenRouterModel = "meta-llama/llama-3.3-70b-instruct:free"
	defaultAttribution     = "Translate Blitz Pro"
)

// mockGradingReply satisfies both the translation and the pronunciation
// reply formats.
const mockGradingReply = `{"correct": true, "explanation": "Respuesta simulada.", "alternatives": [], "tips": "",
"accuracy": 80, "clarity": 80, "phoneticMatch": 80, "overallScore": 80, "feedback": "Respuesta simulada."}`

// registerBuiltinProviders wires all built-in provider factories into reg.
// OpenRouter backends resolve their key through creds on every request, so a
// key saved via the settings API applies without a restart.
func registerBuiltinProviders(reg *config.Registry, creds *settings.Credentials) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("openrouter", func(entry config.ProviderEntry) (llm.Provider, error) {
		model := entry.Model
		if model == "" {
			model = defaultOpenRouterModel
		}
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = openai.OpenRouterBaseURL
		}
		title := optString(entry.Options, "title")
		if title == "" {
			title = defaultAttribution
		}
		opts := []openai.Option{
			openai.WithBaseURL(baseURL),
			openai.WithKeySource(creds.APIKey),
			openai.WithAttribution(optString(entry.Options, "referer"), title),
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, openai.WithTimeout(d))
		}
		return openai.New(entry.APIKey, model, opts...)
	})

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, openai.WithTimeout(d))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	// anyllm reaches every backend any-llm-go supports; options.backend
	// selects it (anthropic, gemini, ollama, ...).
	reg.RegisterLLM("anyllm", func(entry config.ProviderEntry) (llm.Provider, error) {
		backend := optString(entry.Options, "backend")
		if backend == "" {
			return nil, errors.New("anyllm: options.backend is required")
		}
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(backend, entry.Model, opts...)
	})

	reg.RegisterLLM("mock", func(entry config.ProviderEntry) (llm.Provider, error) {
		return &llmmock.Provider{
			ModelName:        "mock",
			CompleteResponse: &llm.CompletionResponse{Content: mockGradingReply},
		}, nil
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, whisper.WithTimeout(d))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("mock", func(config.ProviderEntry) (stt.Provider, error) {
		return &sttmock.Provider{}, nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if mode := optString(entry.Options, "api_mode"); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		if voice := optString(entry.Options, "voice"); voice != "" {
			opts = append(opts, coqui.WithVoice(voice))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, coqui.WithTimeout(d))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	// The mock voice answers with a short silence.
	reg.RegisterTTS("mock", func(config.ProviderEntry) (tts.Provider, error) {
		f := audio.Format{SampleRate: 16000, Channels: 1}
		return &ttsmock.Provider{Audio: tts.Audio{
			Data:        audio.EncodeWAV(make([]byte, f.SampleRate/5*2), f),
			ContentType: "audio/wav",
		}}, nil
	})

	for kind, names := range reg.Names() {
		slog.Debug("providers registered", "kind", kind, "names", names)
	}
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}
	var err error

	if ps.LLM, err = create("llm", cfg.Providers.LLM, reg.CreateLLM); err != nil {
		return nil, err
	}
	if ps.LLMFallback, err = create("llm_fallback", cfg.Providers.LLMFallback, reg.CreateLLM); err != nil {
		return nil, err
	}
	if ps.STT, err = create("stt", cfg.Providers.STT, reg.CreateSTT); err != nil {
		return nil, err
	}
	if ps.TTS, err = create("tts", cfg.Providers.TTS, reg.CreateTTS); err != nil {
		return nil, err
	}
	return ps, nil
}

// create builds the provider for entry. An unconfigured or unregistered
// entry yields the zero value and no error.
func create[P any](kind string, entry config.ProviderEntry, factory func(config.ProviderEntry) (P, error)) (P, error) {
	var zero P
	if entry.Name == "" {
		return zero, nil
	}
	p, err := factory(entry)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		slog.Warn("provider not registered, skipping", "kind", kind, "name", entry.Name)
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("create %s provider %q: %w", kind, entry.Name, err)
	}
	slog.Info("provider created", "kind", kind, "name", entry.Name, "model", entry.Model)
	return p, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}

// optDuration reads a duration option given as a string ("10s") or a number
// of seconds. Returns 0 when absent or invalid.
func optDuration(opts map[string]any, key string) time.Duration {
	switch v := opts[key].(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration option", "key", key, "value", v, "err", err)
			return 0
		}
		return d
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	default:
		return 0
	}
}
