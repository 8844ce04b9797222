// Package coqui provides a TTS provider backed by a locally running Coqui TTS
// server. It implements the tts.Provider interface.
//
// Two API modes are supported:
//
//   - APIModeStandard (default): the standard Coqui TTS server
//     (ghcr.io/coqui-ai/tts-cpu). Synthesis is GET /api/tts with URL query
//     parameters.
//   - APIModeXTTS: the Coqui XTTS v2 API server. Synthesis is POST
//     /tts_to_audio/ with a JSON body.
//
// The standard server has no speed control, so slow playback is produced by
// stretching the returned PCM. XTTS receives the rate as its speed setting.
//
// Typical usage:
//
//	p, err := coqui.New("http://localhost:5002", coqui.WithLanguage("en"))
//	clip, err := p.Synthesize(ctx, tts.Request{Text: "house", Rate: 0.6})
package coqui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/translateblitz/pkg/audio"
	"github.com/MrWong99/translateblitz/pkg/provider/tts"
)

var _ tts.Provider = (*Provider)(nil)

const (
	defaultLanguage = "en"
	defaultTimeout  = 30 * time.Second
	xttsEndpoint    = "/tts_to_audio/"
	apiTTSEndpoint  = "/api/tts"

	minRate = 0.25
	maxRate = 4.0
)

// APIMode selects which Coqui server API the provider targets.
type APIMode string

const (
	// APIModeXTTS targets the Coqui XTTS v2 API server.
	APIModeXTTS APIMode = "xtts"

	// APIModeStandard targets the standard Coqui TTS server. This is the
	// default.
	APIModeStandard APIMode = "standard"
)

// Option is a functional option for configuring a Coqui Provider.
type Option func(*Provider)

// WithLanguage sets the default language code sent to the server. Defaults
// to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithAPIMode sets the server API mode.
func WithAPIMode(mode APIMode) Option {
	return func(p *Provider) {
		p.apiMode = mode
	}
}

// WithVoice sets the default speaker (standard mode) or speaker WAV
// reference (XTTS mode).
func WithVoice(voice string) Option {
	return func(p *Provider) {
		p.voice = voice
	}
}

// WithOutputSampleRate resamples mono output to rate. Zero (default) keeps
// the model's native rate.
func WithOutputSampleRate(rate int) Option {
	return func(p *Provider) {
		p.outputRate = rate
	}
}

// Provider implements tts.Provider against a Coqui TTS server.
type Provider struct {
	serverURL  string
	language   string
	voice      string
	httpClient *http.Client
	apiMode    APIMode
	outputRate int
}

// New creates a Provider for the server at serverURL (e.g.
// "http://localhost:5002"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		apiMode:    APIModeStandard,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// xttsRequest is the JSON body sent to POST /tts_to_audio/.
type xttsRequest struct {
	Text       string  `json:"text"`
	SpeakerWav string  `json:"speaker_wav"`
	Language   string  `json:"language"`
	Speed      float64 `json:"speed,omitempty"`
}

// Synthesize implements tts.Provider. The clip is always a WAV file.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (tts.Audio, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return tts.Audio{}, errors.New("coqui: text must not be empty")
	}
	rate := req.Rate
	if rate == 0 {
		rate = 1
	}
	if rate < minRate || rate > maxRate {
		return tts.Audio{}, fmt.Errorf("coqui: rate %.2f out of range [%.2f, %.2f]", rate, minRate, maxRate)
	}
	voice := req.Voice
	if voice == "" {
		voice = p.voice
	}
	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	var (
		httpReq *http.Request
		err     error
	)
	if p.apiMode == APIModeXTTS {
		httpReq, err = p.xttsRequest(ctx, text, voice, lang, rate)
	} else {
		httpReq, err = p.standardRequest(ctx, text, voice, lang)
	}
	if err != nil {
		return tts.Audio{}, err
	}

	wav, err := p.do(httpReq)
	if err != nil {
		return tts.Audio{}, err
	}

	pcm, f, err := audio.DecodeWAV(wav)
	if err != nil {
		return tts.Audio{}, fmt.Errorf("coqui: %w", err)
	}
	if f.Channels == 1 {
		if p.apiMode == APIModeStandard && rate != 1 {
			// Stretch to 1/rate of the speed while keeping the header rate.
			pcm = audio.ResampleMono16(pcm, f.SampleRate, int(float64(f.SampleRate)/rate))
		}
		if p.outputRate > 0 && p.outputRate != f.SampleRate {
			pcm = audio.ResampleMono16(pcm, f.SampleRate, p.outputRate)
			f.SampleRate = p.outputRate
		}
	}
	return tts.Audio{Data: audio.EncodeWAV(pcm, f), ContentType: "audio/wav"}, nil
}

func (p *Provider) xttsRequest(ctx context.Context, text, voice, lang string, rate float64) (*http.Request, error) {
	body := xttsRequest{Text: text, SpeakerWav: voice, Language: lang}
	if rate != 1 {
		body.Speed = rate
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("coqui: marshal tts request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+xttsEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (p *Provider) standardRequest(ctx context.Context, text, voice, lang string) (*http.Request, error) {
	params := url.Values{}
	params.Set("text", text)
	if voice != "" {
		params.Set("speaker_id", voice)
	}
	if lang != "" {
		params.Set("language_id", lang)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+apiTTSEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	return req, nil
}

func (p *Provider) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "audio/wav")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: %s %s returned status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coqui: read WAV response: %w", err)
	}
	return wav, nil
}
