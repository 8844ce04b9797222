package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrWong99/translateblitz/internal/app"
	"github.com/MrWong99/translateblitz/internal/game"
	"github.com/MrWong99/translateblitz/internal/observe"
	"github.com/MrWong99/translateblitz/internal/settings"
	"github.com/MrWong99/translateblitz/internal/speech"
)

var (
	errBadRequest    = errors.New("invalid request body")
	errNoSTT         = errors.New("audio upload is not supported: no speech-to-text provider configured")
	errNoTTS         = errors.New("speech synthesis is not configured")
	errNothingToSay  = errors.New("no word to speak")
	errNoEventStream = errors.New("session has no event stream")
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errRateLimited), errors.Is(err, app.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, app.ErrSessionNotFound), errors.Is(err, game.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidState),
		errors.Is(err, game.ErrNoDecision),
		errors.Is(err, game.ErrCaptureInProgress),
		errors.Is(err, speech.ErrBusy),
		errors.Is(err, errNothingToSay):
		return http.StatusConflict
	case errors.Is(err, game.ErrGraderUnavailable),
		errors.Is(err, errNoSTT),
		errors.Is(err, errNoTTS),
		errors.Is(err, errNoEventStream),
		errors.Is(err, speech.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest),
		errors.Is(err, game.ErrEmptyInput),
		errors.Is(err, game.ErrEmptyVocabulary),
		errors.Is(err, game.ErrUnknownDifficulty),
		errors.Is(err, settings.ErrInvalidAPIKey),
		errors.Is(err, speech.ErrNoSpeech),
		errors.Is(err, speech.ErrPermissionDenied):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error body. Internal errors are logged
// and not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		observe.Logger(r.Context()).Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "err", err)
	}
}
