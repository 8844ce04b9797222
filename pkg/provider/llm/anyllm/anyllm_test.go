package anyllm

import (
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/translateblitz/pkg/provider/llm"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		model   string
	}{
		{name: "empty backend", backend: "", model: "gpt-4o"},
		{name: "empty model", backend: "openai", model: ""},
		{name: "unsupported backend", backend: "fakecloud", model: "m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.backend, tt.model, anyllmlib.WithAPIKey("dummy")); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_OpenAIWithAPIKey(t *testing.T) {
	p, err := New("OpenAI", "gpt-4o-mini", anyllmlib.WithAPIKey("sk-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Model() != "gpt-4o-mini" {
		t.Errorf("Model() = %q", p.Model())
	}
	if p.Backend() != "openai" {
		t.Errorf("Backend() = %q, want openai", p.Backend())
	}
}

func TestBuildParams(t *testing.T) {
	p := &Provider{model: "llama3.3"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You are a Spanish teacher.",
		Messages:     []llm.Message{llm.UserMessage("grade")},
		Temperature:  0.3,
		MaxTokens:    500,
	})

	if params.Model != "llama3.3" {
		t.Errorf("Model = %q", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Errorf("first role = %q, want system", params.Messages[0].Role)
	}
	if params.Messages[1].ContentString() != "grade" {
		t.Errorf("user content = %q", params.Messages[1].ContentString())
	}
	if params.Temperature == nil || *params.Temperature != 0.3 {
		t.Errorf("Temperature = %v", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 500 {
		t.Errorf("MaxTokens = %v", params.MaxTokens)
	}
}

func TestBuildParams_ZeroValuesOmitted(t *testing.T) {
	p := &Provider{model: "m"}
	params := p.buildParams(llm.CompletionRequest{Messages: []llm.Message{llm.UserMessage("x")}})
	if params.Temperature != nil {
		t.Error("expected nil Temperature")
	}
	if params.MaxTokens != nil {
		t.Error("expected nil MaxTokens")
	}
	if len(params.Messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(params.Messages))
	}
}
