// Package openai provides an LLM provider for OpenAI-compatible chat
// completion endpoints. OpenRouter is the default deployment target; any
// server speaking the same protocol works through [WithBaseURL].
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/MrWong99/translateblitz/pkg/provider/llm"
)

// OpenRouterBaseURL is the OpenRouter endpoint root. The SDK appends
// /chat/completions.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// KeySource resolves the bearer credential for a single request. It is
// consulted on every call so that a credential override saved mid-session
// takes effect on the next grading request.
type KeySource func(ctx context.Context) (string, error)

// Provider implements llm.Provider using the openai-go SDK.
type Provider struct {
	client oai.Client
	model  string
	keys   KeySource
}

type config struct {
	baseURL    string
	referer    string
	title      string
	timeout    time.Duration
	keys       KeySource
	httpClient *http.Client
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithAttribution sets the HTTP-Referer and X-Title headers OpenRouter uses to
// attribute traffic to an application.
func WithAttribution(referer, title string) Option {
	return func(c *config) {
		c.referer = referer
		c.title = title
	}
}

// WithTimeout sets a per-request HTTP timeout. Grading enforces its own
// deadline through the context; this is a transport-level backstop.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithKeySource makes the provider resolve its credential per request. The
// static key passed to [New] is used when the source returns an empty key.
func WithKeySource(ks KeySource) Option {
	return func(c *config) {
		c.keys = ks
	}
}

// WithHTTPClient replaces the HTTP client. Mainly useful in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// New constructs a Provider. apiKey may be empty only when a key source is
// configured.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	if apiKey == "" && cfg.keys == nil {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	// Retries are user-initiated in this application, never automatic.
	reqOpts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.referer != "" {
		reqOpts = append(reqOpts, option.WithHeader("HTTP-Referer", cfg.referer))
	}
	if cfg.title != "" {
		reqOpts = append(reqOpts, option.WithHeader("X-Title", cfg.title))
	}
	switch {
	case cfg.httpClient != nil:
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	case cfg.timeout > 0:
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model, keys: cfg.keys}, nil
}

// Model implements llm.Provider.
func (p *Provider) Model() string { return p.model }

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("openai: request has no messages")
	}
	params, err := p.buildParams(req)
	if err != nil {
		return nil, fmt.Errorf("openai: build params: %w", err)
	}

	var callOpts []option.RequestOption
	if p.keys != nil {
		key, err := p.keys(ctx)
		if err != nil {
			return nil, fmt.Errorf("openai: resolve api key: %w", err)
		}
		if key != "" {
			callOpts = append(callOpts, option.WithAPIKey(key))
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params, callOpts...)
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return nil, &llm.StatusError{
				Provider:   "openai",
				StatusCode: apiErr.StatusCode,
				Body:       apiErr.Message,
			}
		}
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, llm.ErrEmptyResponse
	}

	return &llm.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// buildParams converts a CompletionRequest into SDK params. OpenRouter
// expects the classic max_tokens field rather than max_completion_tokens.
func (p *Provider) buildParams(req llm.CompletionRequest) (oai.ChatCompletionNewParams, error) {
	var messages []oai.ChatCompletionMessageParamUnion

	if req.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		msg, err := convertMessage(m)
		if err != nil {
			return oai.ChatCompletionNewParams{}, err
		}
		messages = append(messages, msg)
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
	if req.Temperature != 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.MaxTokens))
	}
	return params, nil
}

func convertMessage(m llm.Message) (oai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case "system":
		return oai.SystemMessage(m.Content), nil
	case "user":
		return oai.UserMessage(m.Content), nil
	case "assistant":
		return oai.AssistantMessage(m.Content), nil
	default:
		return oai.ChatCompletionMessageParamUnion{}, fmt.Errorf("openai: unknown message role %q", m.Role)
	}
}

var _ llm.Provider = (*Provider)(nil)
