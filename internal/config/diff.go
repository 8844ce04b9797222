package config

import "fmt"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked. Running games keep
// the rules they started with; changes apply to games started afterwards.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	GameChanged    bool // game rules, word list or display delay
	GradingChanged bool // mode, timeout or transport downgrade
	LLMChanged     bool // primary or fallback grading backend

	// Restart lists fields that changed but only take effect after a restart.
	Restart []string
}

// Changed reports whether d carries any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.GameChanged || d.GradingChanged || d.LLMChanged || len(d.Restart) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	og, ng := old.Game, new.Game
	if og.PassingScore != ng.PassingScore ||
		og.MaxPronunciationAttempts != ng.MaxPronunciationAttempts ||
		og.Tick != ng.Tick ||
		og.Difficulties != ng.Difficulties ||
		og.VocabularyFile != ng.VocabularyFile ||
		old.Server.DisplayDelay != new.Server.DisplayDelay {
		d.GameChanged = true
	}

	if old.Grading.Mode != new.Grading.Mode ||
		old.Grading.Timeout != new.Grading.Timeout ||
		old.Grading.DowngradeOnTransport != new.Grading.DowngradeOnTransport {
		d.GradingChanged = true
	}

	if !sameEntry(old.Providers.LLM, new.Providers.LLM) || !sameEntry(old.Providers.LLMFallback, new.Providers.LLMFallback) {
		d.LLMChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.Restart = append(d.Restart, "server.listen_addr")
	}
	if old.Server.SessionTTL != new.Server.SessionTTL || old.Server.MaxSessions != new.Server.MaxSessions {
		d.Restart = append(d.Restart, "server.sessions")
	}
	if old.Server.RateLimit != new.Server.RateLimit {
		d.Restart = append(d.Restart, "server.rate_limit")
	}
	if old.Grading.MaxConcurrent != new.Grading.MaxConcurrent {
		d.Restart = append(d.Restart, "grading.max_concurrent")
	}
	if old.Settings != new.Settings {
		d.Restart = append(d.Restart, "settings")
	}
	if !sameEntry(old.Providers.STT, new.Providers.STT) {
		d.Restart = append(d.Restart, "providers.stt")
	}
	if !sameEntry(old.Providers.TTS, new.Providers.TTS) {
		d.Restart = append(d.Restart, "providers.tts")
	}

	return d
}

// sameEntry compares two provider entries. Options are compared by key set
// and scalar value only.
func sameEntry(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	if len(a.Options) != len(b.Options) {
		return false
	}
	for k, av := range a.Options {
		bv, ok := b.Options[k]
		if !ok {
			return false
		}
		if fmt.Sprint(av) != fmt.Sprint(bv) {
			return false
		}
	}
	return true
}
