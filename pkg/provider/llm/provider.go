// Package llm defines the Provider interface for chat-completion backends used
// to grade learner answers.
//
// A provider wraps a remote model API (OpenRouter, OpenAI, or anything reachable
// through any-llm-go) and exposes one blocking completion call. Grading never
// streams: the grader needs the whole reply before it can extract the embedded
// JSON verdict.
//
// Implementations must be safe for concurrent use and must return promptly when
// the supplied context is cancelled.
package llm

import (
	"context"
	"errors"
	"strconv"
)

// ErrEmptyResponse is returned when the backend answered with a 2xx status but
// no choices or an empty message.
var ErrEmptyResponse = errors.New("llm: empty response")

// CompletionRequest carries everything the model needs to produce a reply.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. Grading sends a single user message.
	Messages []Message

	// SystemPrompt is prepended as a "system" message when non-empty.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0].
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the full reply of a completion call.
type CompletionResponse struct {
	// Content is the text of the first choice.
	Content string

	// Model is the model name reported by the backend, which may differ from the
	// requested one when a router picks a variant.
	Model string

	Usage Usage
}

// Provider is the abstraction over any chat-completion backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Non-2xx statuses and transport failures are returned as errors; callers
	// classify them with [StatusCode].
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Model returns the configured model identifier.
	Model() string
}

// StatusError is returned by providers when the backend answered with a
// non-2xx HTTP status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return e.Provider + ": unexpected status " + strconv.Itoa(e.StatusCode)
	}
	return e.Provider + ": unexpected status " + strconv.Itoa(e.StatusCode) + ": " + e.Body
}

// StatusCode reports the HTTP status carried by err, or 0 when err does not
// wrap a [*StatusError].
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
