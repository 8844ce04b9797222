package whisper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MrWong99/translateblitz/pkg/audio"
	"github.com/MrWong99/translateblitz/pkg/provider/stt"
)

type upload struct {
	filename string
	audio    []byte
	fields   map[string]string
}

type capturedForm struct {
	mu sync.Mutex
	upload
}

// newMockServer answers POST /inference with responseText and records the
// last multipart form it received.
func newMockServer(t *testing.T, status int, responseText string, got *capturedForm) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if got != nil {
			got.mu.Lock()
			defer got.mu.Unlock()
			f, hdr, err := r.FormFile("file")
			if err == nil {
				got.filename = hdr.Filename
				got.audio, _ = io.ReadAll(f)
				f.Close()
			}
			got.fields = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				got.fields[k] = v[0]
			}
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": responseText})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// snapshot returns a copy safe to read after the request completed.
func (c *capturedForm) snapshot() upload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upload
}

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

func TestTranscribe_UploadsAudio(t *testing.T) {
	t.Parallel()

	var captured capturedForm
	srv := newMockServer(t, http.StatusOK, "  house \n", &captured)
	p, err := New(srv.URL+"/", WithModel("base.en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	clip := []byte("webm-bytes")
	ts, err := p.Transcribe(context.Background(), stt.Request{Audio: clip, ContentType: "audio/webm;codecs=opus"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(ts) != 1 || ts[0].Text != "house" {
		t.Fatalf("transcripts = %+v, want one trimmed \"house\"", ts)
	}
	got := captured.snapshot()
	if got.filename != "audio.webm" {
		t.Errorf("filename = %q, want audio.webm", got.filename)
	}
	if !bytes.Equal(got.audio, clip) {
		t.Errorf("uploaded audio = %q, want %q", got.audio, clip)
	}
	want := map[string]string{"language": "en", "model": "base.en", "response_format": "json"}
	for k, v := range want {
		if got.fields[k] != v {
			t.Errorf("field %s = %q, want %q", k, got.fields[k], v)
		}
	}
}

func TestTranscribe_WrapsRawPCM(t *testing.T) {
	t.Parallel()

	var captured capturedForm
	srv := newMockServer(t, http.StatusOK, "water", &captured)
	p, _ := New(srv.URL)

	pcm := make([]byte, 3200)
	_, err := p.Transcribe(context.Background(), stt.Request{
		Audio:       pcm,
		ContentType: ContentTypePCM,
		SampleRate:  16000,
		Language:    "es",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	got := captured.snapshot()
	if got.filename != "audio.wav" {
		t.Errorf("filename = %q, want audio.wav", got.filename)
	}
	if len(got.audio) != 44+len(pcm) || string(got.audio[0:4]) != "RIFF" {
		t.Fatalf("upload is not a WAV wrapper (len %d)", len(got.audio))
	}
	if sr := binary.LittleEndian.Uint32(got.audio[24:28]); sr != 16000 {
		t.Errorf("WAV sample rate = %d, want 16000", sr)
	}
	if got.fields["language"] != "es" {
		t.Errorf("language = %q, want per-request es", got.fields["language"])
	}
}

func TestTranscribe_Errors(t *testing.T) {
	t.Parallel()

	srv := newMockServer(t, http.StatusInternalServerError, "", nil)
	p, _ := New(srv.URL)

	tests := []struct {
		name string
		req  stt.Request
	}{
		{"no audio", stt.Request{}},
		{"pcm without sample rate", stt.Request{Audio: []byte{0, 0}, ContentType: ContentTypePCM}},
		{"server error", stt.Request{Audio: []byte("x"), ContentType: "audio/wav"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Transcribe(context.Background(), tt.req); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := p.Transcribe(context.Background(), stt.Request{}); !errors.Is(err, stt.ErrNoAudio) {
		t.Errorf("empty audio err = %v, want ErrNoAudio", err)
	}
}

func TestTranscribe_EmptyTextYieldsNoTranscripts(t *testing.T) {
	t.Parallel()

	srv := newMockServer(t, http.StatusOK, "   ", nil)
	p, _ := New(srv.URL)
	ts, err := p.Transcribe(context.Background(), stt.Request{Audio: []byte("x")})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(ts) != 0 {
		t.Errorf("transcripts = %+v, want none", ts)
	}
}

func TestTranscribe_ConvertsWAVToInferenceFormat(t *testing.T) {
	t.Parallel()

	var captured capturedForm
	srv := newMockServer(t, http.StatusOK, "car", &captured)
	p, _ := New(srv.URL)

	// 30 ms of 48 kHz stereo silence.
	src := audio.EncodeWAV(make([]byte, 48*30*4), audio.Format{SampleRate: 48000, Channels: 2})
	if _, err := p.Transcribe(context.Background(), stt.Request{Audio: src, ContentType: "audio/wav"}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	got := captured.snapshot()
	_, f, err := audio.DecodeWAV(got.audio)
	if err != nil {
		t.Fatalf("uploaded audio is not WAV: %v", err)
	}
	if want := (audio.Format{SampleRate: 16000, Channels: 1}); f != want {
		t.Errorf("uploaded format = %v, want %v", f, want)
	}
	if len(got.audio) != 44+16*30*2 {
		t.Errorf("uploaded %d bytes, want %d", len(got.audio), 44+16*30*2)
	}
}
