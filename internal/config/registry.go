package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/MrWong99/translateblitz/pkg/provider/llm"
	"github.com/MrWong99/translateblitz/pkg/provider/stt"
	"github.com/MrWong99/translateblitz/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory builds a provider from its config entry.
type Factory[P any] func(ProviderEntry) (P, error)

// factories is the name-to-factory table of one provider kind.
type factories[P any] struct {
	kind string
	mu   sync.RWMutex
	m    map[string]Factory[P]
}

func newFactories[P any](kind string) *factories[P] {
	return &factories[P]{kind: kind, m: make(map[string]Factory[P])}
}

func (f *factories[P]) register(name string, fn Factory[P]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[name] = fn
}

func (f *factories[P]) create(entry ProviderEntry) (P, error) {
	f.mu.RLock()
	fn, ok := f.m[entry.Name]
	f.mu.RUnlock()
	if !ok {
		var zero P
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, f.kind, entry.Name)
	}
	return fn(entry)
}

func (f *factories[P]) names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Sorted(maps.Keys(f.m))
}

// Registry maps provider names to their factories, one table per provider
// kind. It is safe for concurrent use.
type Registry struct {
	llm *factories[llm.Provider]
	stt *factories[stt.Provider]
	tts *factories[tts.Provider]
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm: newFactories[llm.Provider]("llm"),
		stt: newFactories[stt.Provider]("stt"),
		tts: newFactories[tts.Provider]("tts"),
	}
}

// RegisterLLM registers a grading backend factory under name. A later
// registration under the same name wins.
func (r *Registry) RegisterLLM(name string, fn Factory[llm.Provider]) { r.llm.register(name, fn) }

// RegisterSTT registers a transcription factory under name.
func (r *Registry) RegisterSTT(name string, fn Factory[stt.Provider]) { r.stt.register(name, fn) }

// RegisterTTS registers a speech synthesis factory under name.
func (r *Registry) RegisterTTS(name string, fn Factory[tts.Provider]) { r.tts.register(name, fn) }

// CreateLLM builds the grading backend named by entry.Name. It returns
// [ErrProviderNotRegistered] for unknown names.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) { return r.llm.create(entry) }

// CreateSTT builds the transcription provider named by entry.Name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) { return r.stt.create(entry) }

// CreateTTS builds the speech synthesis provider named by entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) { return r.tts.create(entry) }

// Names returns the sorted registered names per kind ("llm", "stt", "tts").
func (r *Registry) Names() map[string][]string {
	return map[string][]string{
		r.llm.kind: r.llm.names(),
		r.stt.kind: r.stt.names(),
		r.tts.kind: r.tts.names(),
	}
}
