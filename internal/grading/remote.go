package grading

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/translateblitz/internal/observe"
	"github.com/MrWong99/translateblitz/internal/resilience"
	"github.com/MrWong99/translateblitz/pkg/provider/llm"
)

const (
	defaultTemperature   = 0.3
	defaultMaxTokens     = 500
	defaultMaxConcurrent = 8
)

// RemoteOption configures a [Remote] grader.
type RemoteOption func(*Remote)

// WithTemperature overrides the sampling temperature. Default: 0.3.
func WithTemperature(t float64) RemoteOption {
	return func(r *Remote) { r.temperature = t }
}

// WithMaxTokens overrides the completion length cap. Default: 500.
func WithMaxTokens(n int) RemoteOption {
	return func(r *Remote) { r.maxTokens = n }
}

// WithMaxConcurrent bounds how many backend calls may be in flight across
// every session sharing this grader. Default: 8.
func WithMaxConcurrent(n int) RemoteOption {
	return func(r *Remote) { r.maxConcurrent = n }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) RemoteOption {
	return func(r *Remote) { r.metrics = m }
}

// Remote grades through a chat-completion backend.
type Remote struct {
	provider      llm.Provider
	temperature   float64
	maxTokens     int
	maxConcurrent int
	metrics       *observe.Metrics
	bulkhead      bulkhead.Bulkhead[*llm.CompletionResponse]
}

var _ Grader = (*Remote)(nil)

// NewRemote creates a [Remote] on top of provider.
func NewRemote(provider llm.Provider, opts ...RemoteOption) *Remote {
	r := &Remote{
		provider:      provider,
		temperature:   defaultTemperature,
		maxTokens:     defaultMaxTokens,
		maxConcurrent: defaultMaxConcurrent,
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	if r.maxConcurrent <= 0 {
		r.maxConcurrent = defaultMaxConcurrent
	}
	r.bulkhead = bulkhead.New[*llm.CompletionResponse](bulkhead.Config{
		MaxConcurrent: r.maxConcurrent,
		MaxQueue:      r.maxConcurrent * 2,
		QueueTimeout:  30 * time.Second,
	})
	return r
}

// GradeTranslation implements [Grader].
func (r *Remote) GradeTranslation(ctx context.Context, word, text string) (TranslationResult, error) {
	reply, err := r.complete(ctx, KindTranslation, translationPrompt(word, text))
	if err != nil {
		return TranslationResult{}, err
	}
	return ParseTranslation(reply)
}

// GradePronunciation implements [Grader].
func (r *Remote) GradePronunciation(ctx context.Context, word, spoken string, confidence int) (PronunciationResult, error) {
	reply, err := r.complete(ctx, KindPronunciation, pronunciationPrompt(word, spoken, confidence))
	if err != nil {
		return PronunciationResult{}, err
	}
	return ParsePronunciation(reply)
}

func (r *Remote) complete(ctx context.Context, kind Kind, prompt string) (reply string, err error) {
	ctx, span := observe.StartSpan(ctx, "grading."+string(kind))
	span.SetAttributes(attribute.String("llm.model", r.provider.Model()))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.SetAttributes(attribute.String("grading.class", string(classify(err))))
		}
		r.metrics.RecordGrade(ctx, string(kind), "remote", outcome, time.Since(start))
		observe.EndSpan(span, err)
	}()

	resp, err := r.bulkhead.Execute(ctx, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return r.provider.Complete(ctx, llm.CompletionRequest{
			Messages:    []llm.Message{llm.UserMessage(prompt)},
			Temperature: r.temperature,
			MaxTokens:   r.maxTokens,
		})
	})
	if err != nil {
		return "", fmt.Errorf("grading: remote %s: %w", kind, err)
	}
	if resp == nil {
		return "", llm.ErrEmptyResponse
	}
	return resp.Content, nil
}

// classify maps a remote failure to its [Class].
// BackendFailure reports whether err says something about the health of the
// grading backend. A cancelled call and a 4xx answer other than 404, 408 or
// 429 do not: they follow from the caller going away or from a bad request
// or key, and must not open a breaker shared by every session.
func BackendFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch code := llm.StatusCode(err); {
	case code == http.StatusNotFound, code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 400 && code < 500:
		return false
	}
	return true
}

func classify(err error) Class {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, llm.ErrEmptyResponse):
		return ClassParse
	case llm.StatusCode(err) == http.StatusNotFound:
		return ClassTransport
	case llm.StatusCode(err) != 0:
		return ClassStatus
	case errors.Is(err, resilience.ErrCircuitOpen):
		return ClassUnavailable
	case errors.As(err, &netErr):
		return ClassTransport
	}
	return ClassUnavailable
}
