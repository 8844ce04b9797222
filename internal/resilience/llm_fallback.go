package resilience

import (
	"context"

	"github.com/MrWong99/translateblitz/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with failover across grading
// backends. Each backend has its own circuit breaker.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional backend.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Complete sends the request to the first healthy backend.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(ctx, f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// Model returns the primary backend's model.
func (f *LLMFallback) Model() string {
	return f.group.entries[0].value.Model()
}

// Available reports whether any backend breaker is not open. Used by the
// readiness check.
func (f *LLMFallback) Available() bool { return f.group.Available() }

// States exposes per-backend breaker states for diagnostics.
func (f *LLMFallback) States() map[string]State { return f.group.States() }
