// Package speech adapts the ways a player's spoken attempt can reach the
// server into one [Recorder] boundary.
//
// Browsers with the Web Speech API recognize speech client-side and push the
// hypotheses through a [ClientRecorder]. Clients without it upload audio,
// which an [STTRecorder] sends to a speech-to-text backend.
package speech

import (
	"context"
	"errors"
	"strings"
)

// DefaultConfidence replaces a missing recognizer confidence.
const DefaultConfidence = 50

var (
	// ErrUnavailable reports that speech capture is not supported or the
	// recognizer could not be reached.
	ErrUnavailable = errors.New("speech: capture unavailable")

	// ErrPermissionDenied reports that the player refused microphone access.
	ErrPermissionDenied = errors.New("speech: microphone permission denied")

	// ErrNoSpeech reports an utterance without any recognized speech.
	ErrNoSpeech = errors.New("speech: no speech detected")
)

// Candidate is one recognition hypothesis for an utterance.
type Candidate struct {
	Transcript string `json:"transcript"`

	// Confidence is the recognizer's confidence in percent (0..100).
	Confidence int `json:"confidence"`
}

// Recorder captures one utterance.
//
// Implementations return the hypotheses best first. Capability failures are
// reported as [ErrUnavailable] or [ErrPermissionDenied]; an empty capture as
// [ErrNoSpeech].
type Recorder interface {
	RecordUtterance(ctx context.Context) ([]Candidate, error)
}

// Best returns the first usable candidate with its transcript trimmed. A zero
// confidence is replaced by [DefaultConfidence].
func Best(cands []Candidate) (Candidate, error) {
	for _, c := range cands {
		c.Transcript = strings.TrimSpace(c.Transcript)
		if c.Transcript == "" {
			continue
		}
		if c.Confidence <= 0 {
			c.Confidence = DefaultConfidence
		}
		if c.Confidence > 100 {
			c.Confidence = 100
		}
		return c, nil
	}
	return Candidate{}, ErrNoSpeech
}

// Reason returns a short metric label for a capture error.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission-denied"
	case errors.Is(err, ErrNoSpeech):
		return "no-speech"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}

// ErrorFromClient maps a Web Speech API error code reported by the browser
// to the package's errors. Unknown codes map to [ErrUnavailable].
func ErrorFromClient(code string) error {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "not-allowed", "service-not-allowed", "permission-denied":
		return ErrPermissionDenied
	case "no-speech", "aborted":
		return ErrNoSpeech
	default:
		return ErrUnavailable
	}
}
