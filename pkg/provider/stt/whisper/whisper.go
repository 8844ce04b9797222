// Package whisper provides an STT provider backed by a whisper.cpp server.
//
// It uploads each utterance to the server's POST /inference endpoint as
// multipart/form-data and returns the recognized text as a single
// transcript. whisper.cpp does not report a confidence, so transcripts carry
// Confidence 0 and callers apply their own default.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080", whisper.WithLanguage("en"))
//	ts, err := p.Transcribe(ctx, stt.Request{Audio: wav, ContentType: "audio/wav"})
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/translateblitz/pkg/audio"
	"github.com/MrWong99/translateblitz/pkg/provider/stt"
)

const (
	defaultLanguage = "en"
	defaultTimeout  = 30 * time.Second

	// ContentTypePCM marks raw 16-bit little-endian mono PCM.
	ContentTypePCM = "audio/l16"
)

var _ stt.Provider = (*Provider)(nil)

var inferenceFormat = audio.Format{SampleRate: 16000, Channels: 1}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the server (e.g.
// "base.en"). When empty the server uses whichever model it was started with.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the default recognition language. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithTimeout sets the HTTP client timeout. Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider against a whisper.cpp HTTP server.
type Provider struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// New creates a Provider for the server at serverURL (e.g.
// "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) ([]stt.Transcript, error) {
	if len(req.Audio) == 0 {
		return nil, stt.ErrNoAudio
	}
	data, filename, err := prepareAudio(req)
	if err != nil {
		return nil, err
	}
	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	body, contentType, err := p.buildForm(data, filename, lang)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", body)
	if err != nil {
		return nil, fmt.Errorf("whisper: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisper: read response body: %w", err)
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return nil, nil
	}
	return []stt.Transcript{{Text: text}}, nil
}

// prepareAudio returns the bytes to upload. whisper.cpp decodes 16 kHz mono
// WAV natively, so raw PCM is wrapped and WAV in any other format is
// converted. Compressed formats are passed through for servers started with
// --convert.
func prepareAudio(req stt.Request) ([]byte, string, error) {
	switch {
	case req.ContentType == ContentTypePCM:
		if req.SampleRate <= 0 {
			return nil, "", errors.New("whisper: sample rate required for raw PCM")
		}
		pcm := audio.Convert(req.Audio, audio.Format{SampleRate: req.SampleRate, Channels: 1}, inferenceFormat)
		return audio.EncodeWAV(pcm, inferenceFormat), "audio.wav", nil
	case strings.Contains(req.ContentType, "wav"):
		pcm, f, err := audio.DecodeWAV(req.Audio)
		if err != nil {
			return nil, "", fmt.Errorf("whisper: %w", err)
		}
		if f == inferenceFormat {
			return req.Audio, "audio.wav", nil
		}
		return audio.EncodeWAV(audio.Convert(pcm, f, inferenceFormat), inferenceFormat), "audio.wav", nil
	default:
		return req.Audio, filenameFor(req.ContentType), nil
	}
}

func (p *Provider) buildForm(data []byte, filename, lang string) (io.Reader, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, "", fmt.Errorf("whisper: write audio data: %w", err)
	}

	fields := map[string]string{
		"response_format": "json",
		"language":        lang,
		"model":           p.model,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("whisper: write %s field: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}
	return &body, mw.FormDataContentType(), nil
}

func filenameFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "webm"):
		return "audio.webm"
	case strings.Contains(contentType, "ogg"):
		return "audio.ogg"
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return "audio.mp3"
	default:
		return "audio.bin"
	}
}
