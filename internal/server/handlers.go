package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/translateblitz/internal/app"
	"github.com/MrWong99/translateblitz/internal/game"
	"github.com/MrWong99/translateblitz/internal/observe"
	"github.com/MrWong99/translateblitz/internal/settings"
	"github.com/MrWong99/translateblitz/internal/speech"
	"github.com/MrWong99/translateblitz/internal/vocabulary"
	"github.com/MrWong99/translateblitz/pkg/provider/stt"
	"github.com/MrWong99/translateblitz/pkg/provider/tts"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 10 << 20

	// speechLanguage is the language of the words being practised.
	speechLanguage = "en"

	slowRate = 0.6
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

// session resolves the {id} path value.
func (s *Server) session(r *http.Request) (*app.Session, error) {
	return s.app.Sessions().Get(r.PathValue("id"))
}

type createResponse struct {
	ID string `json:"id"`
}

// handleCreate handles POST /api/sessions.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.Sessions().Create(r.Context(), func(id string) game.Presenter {
		return newHub(slog.Default().With("session_id", id))
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{ID: sess.ID()})
}

// handleClose handles DELETE /api/sessions/{id}.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Sessions().Close(r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSnapshot handles GET /api/sessions/{id}.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := sess.Runner.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleSummary handles GET /api/sessions/{id}/summary.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := sess.Runner.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type startRequest struct {
	Difficulty string `json:"difficulty"`

	// Vocabulary replaces the configured word list for this game.
	Vocabulary []string `json:"vocabulary"`
}

// handleStart handles POST /api/sessions/{id}/start.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := game.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// A custom list with no usable entries falls back to the configured one.
	words := s.app.Shuffle(vocabulary.Parse(strings.Join(req.Vocabulary, "\n")))
	if len(words) == 0 {
		words = s.app.Vocabulary()
	}

	if err := sess.Runner.Start(r.Context(), words, d); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeState(w, r, sess)
}

type translationRequest struct {
	Text string `json:"text"`
}

// handleTranslation handles POST /api/sessions/{id}/translation. The grade
// arrives on the event stream.
func (s *Server) handleTranslation(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req translationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := sess.Runner.SubmitTranslation(r.Context(), req.Text); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type pronunciationRequest struct {
	Candidates []speech.Candidate `json:"candidates"`

	// Error reports a client-side capture failure instead of candidates:
	// "permission-denied", "no-speech" or "unavailable".
	Error string `json:"error,omitempty"`
}

// handlePronunciation handles POST /api/sessions/{id}/pronunciation.
//
// Browsers with speech recognition post the recognizer's hypotheses as JSON.
// Other clients upload the recording as the multipart field "audio", which
// is transcribed by the configured speech-to-text provider.
func (s *Server) handlePronunciation(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var rec speech.Recorder
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		rec, err = s.uploadRecorder(w, r)
	} else {
		rec, err = s.clientRecorder(w, r, sess)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := sess.Runner.Record(r.Context(), rec); err != nil {
		if _, ok := rec.(*speech.ClientRecorder); ok {
			sess.Recorder.Drain()
		}
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) clientRecorder(w http.ResponseWriter, r *http.Request, sess *app.Session) (speech.Recorder, error) {
	var req pronunciationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if req.Error != "" {
		return sess.Recorder, sess.Recorder.Fail(captureError(req.Error))
	}
	return sess.Recorder, sess.Recorder.Submit(req.Candidates)
}

func captureError(reason string) error {
	switch reason {
	case "permission-denied":
		return speech.ErrPermissionDenied
	case "no-speech":
		return speech.ErrNoSpeech
	default:
		return speech.ErrUnavailable
	}
}

func (s *Server) uploadRecorder(w http.ResponseWriter, r *http.Request) (speech.Recorder, error) {
	p := s.app.Providers().STT
	if p == nil {
		return nil, errNoSTT
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	f, hdr, err := r.FormFile("audio")
	if err != nil {
		return nil, fmt.Errorf("%w: audio: %w", errBadRequest, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: audio: %w", errBadRequest, err)
	}

	req := stt.Request{
		Audio:       data,
		ContentType: hdr.Header.Get("Content-Type"),
		Language:    speechLanguage,
	}
	if v := r.FormValue("sample_rate"); v != "" {
		if req.SampleRate, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("%w: sample_rate: %w", errBadRequest, err)
		}
	}
	return speech.NewSTTRecorder(p, req, s.app.Metrics()), nil
}

type decisionRequest struct {
	Retry bool `json:"retry"`
}

// handleDecision handles POST /api/sessions/{id}/decision.
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := sess.Runner.Decide(r.Context(), req.Retry); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeState(w, r, sess)
}

// handleAdvance handles POST /api/sessions/{id}/advance.
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.runnerAction(w, r, (*game.Runner).Advance)
}

// handlePause handles POST /api/sessions/{id}/pause.
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.runnerAction(w, r, (*game.Runner).Pause)
}

// handleResume handles POST /api/sessions/{id}/resume.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.runnerAction(w, r, (*game.Runner).Resume)
}

// handleReset handles POST /api/sessions/{id}/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.runnerAction(w, r, (*game.Runner).Reset)
}

func (s *Server) runnerAction(w http.ResponseWriter, r *http.Request, action func(*game.Runner, context.Context) error) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := action(sess.Runner, r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeState(w, r, sess)
}

func (s *Server) writeState(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	st, err := sess.Runner.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleSpeak handles GET /api/sessions/{id}/speak[?slow=true]: the current
// word as synthesized audio.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := s.app.Providers().TTS
	if p == nil {
		writeError(w, r, errNoTTS)
		return
	}
	st, err := sess.Runner.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if st.Word == "" {
		writeError(w, r, errNothingToSay)
		return
	}

	req := tts.Request{Text: st.Word, Language: speechLanguage, Rate: 1.0}
	if slow, _ := strconv.ParseBool(r.URL.Query().Get("slow")); slow {
		req.Rate = slowRate
	}

	ctx, span := observe.StartSpan(r.Context(), "tts.synthesize")
	start := time.Now()
	audio, err := p.Synthesize(ctx, req)
	s.app.Metrics().TTSDuration.Record(ctx, time.Since(start).Seconds())
	observe.EndSpan(span, err)
	if err != nil {
		observe.Logger(ctx).Warn("speech synthesis failed", "word", st.Word, "err", err)
		writeError(w, r, fmt.Errorf("%w: %w", errNoTTS, err))
		return
	}

	ct := audio.ContentType
	if ct == "" {
		ct = "audio/wav"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio.Data); err != nil {
		observe.Logger(ctx).Debug("write audio", "err", err)
	}
}

type vocabularyEntry struct {
	Word     string `json:"word"`
	Phonetic string `json:"phonetic,omitempty"`
}

// handleVocabulary handles GET /api/vocabulary: the configured word list in
// a fresh random order.
func (s *Server) handleVocabulary(w http.ResponseWriter, r *http.Request) {
	words := s.app.Vocabulary()
	out := make([]vocabularyEntry, 0, len(words))
	for _, word := range words {
		ipa, _ := vocabulary.Phonetic(word)
		out = append(out, vocabularyEntry{Word: word, Phonetic: ipa})
	}
	writeJSON(w, http.StatusOK, out)
}

type apiKeyStatus struct {
	// Configured reports whether any key is available.
	Configured bool `json:"configured"`

	// Override reports whether the key comes from the settings store rather
	// than the config file.
	Override bool `json:"override"`
}

// handleAPIKeyStatus handles GET /api/settings/api-key. The key itself is
// never returned.
func (s *Server) handleAPIKeyStatus(w http.ResponseWriter, r *http.Request) {
	creds := s.app.Credentials()
	key, err := creds.APIKey(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Warn("read api key override", "err", err)
	}
	writeJSON(w, http.StatusOK, apiKeyStatus{
		Configured: key != "",
		Override:   creds.HasOverride(r.Context()),
	})
}

type apiKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// handleSetAPIKey handles PUT /api/settings/api-key.
func (s *Server) handleSetAPIKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := settings.SetAPIKey(r.Context(), s.app.Store(), req.APIKey); err != nil {
		writeError(w, r, err)
		return
	}
	observe.Logger(r.Context()).Info("api key override updated")
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAPIKey handles DELETE /api/settings/api-key. Removing an
// absent override succeeds.
func (s *Server) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	err := s.app.Store().Delete(r.Context(), settings.CredentialKey)
	if err != nil && !errors.Is(err, settings.ErrNotFound) {
		writeError(w, r, err)
		return
	}
	observe.Logger(r.Context()).Info("api key override removed")
	w.WriteHeader(http.StatusNoContent)
}
