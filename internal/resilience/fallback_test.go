package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/translateblitz/pkg/provider/llm"
	"github.com/MrWong99/translateblitz/pkg/provider/llm/mock"
)

func TestExecuteWithResult_PrimarySucceeds(t *testing.T) {
	fg := NewFallbackGroup("a", "primary", FallbackConfig{})
	fg.AddFallback("secondary", "b")

	var tried []string
	got, err := ExecuteWithResult(context.Background(), fg, func(v string) (string, error) {
		tried = append(tried, v)
		return v + "!", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a!" {
		t.Errorf("got %q, want a!", got)
	}
	if len(tried) != 1 {
		t.Errorf("tried = %v, want only primary", tried)
	}
}

func TestExecuteWithResult_FallsBack(t *testing.T) {
	fg := NewFallbackGroup("a", "primary", FallbackConfig{})
	fg.AddFallback("secondary", "b")

	got, err := ExecuteWithResult(context.Background(), fg, func(v string) (string, error) {
		if v == "a" {
			return "", errTest
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "b" {
		t.Errorf("got %q, want b", got)
	}
}

func TestExecuteWithResult_AllFailedWrapsLastError(t *testing.T) {
	fg := NewFallbackGroup("a", "primary", FallbackConfig{})
	fg.AddFallback("secondary", "b")

	_, err := ExecuteWithResult(context.Background(), fg, func(string) (int, error) {
		return 0, errTest
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errTest) {
		t.Errorf("err = %v, want wrapped errTest", err)
	}
}

func TestExecuteWithResult_StopsWhenContextDone(t *testing.T) {
	fg := NewFallbackGroup("a", "primary", FallbackConfig{})
	fg.AddFallback("secondary", "b")

	ctx, cancel := context.WithCancel(context.Background())
	var tried []string
	_, err := ExecuteWithResult(ctx, fg, func(v string) (int, error) {
		tried = append(tried, v)
		cancel()
		return 0, context.Canceled
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(tried) != 1 {
		t.Errorf("tried = %v, secondary must not run after cancellation", tried)
	}
}

func TestFallbackGroup_AvailableAndStates(t *testing.T) {
	fg := NewFallbackGroup("a", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	if !fg.Available() {
		t.Fatal("fresh group must be available")
	}
	_, _ = ExecuteWithResult(context.Background(), fg, func(string) (int, error) { return 0, errTest })
	if fg.Available() {
		t.Error("group with only an open breaker must be unavailable")
	}
	if st := fg.States()["primary"]; st != StateOpen {
		t.Errorf("primary state = %v, want open", st)
	}
	if names := fg.Names(); len(names) != 1 || names[0] != "primary" {
		t.Errorf("Names() = %v", names)
	}
}

func TestLLMFallback_Complete(t *testing.T) {
	primary := &mock.Provider{CompleteErr: errTest, ModelName: "primary-model"}
	secondary := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "{}"}}

	f := NewLLMFallback(primary, "openrouter", FallbackConfig{})
	f.AddFallback("ollama", secondary)

	resp, err := f.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{llm.UserMessage("x")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "{}" {
		t.Errorf("Content = %q", resp.Content)
	}
	if primary.CallCount() != 1 || secondary.CallCount() != 1 {
		t.Errorf("calls primary=%d secondary=%d, want 1/1", primary.CallCount(), secondary.CallCount())
	}
	if f.Model() != "primary-model" {
		t.Errorf("Model() = %q", f.Model())
	}
	if !f.Available() {
		t.Error("expected available")
	}
}
