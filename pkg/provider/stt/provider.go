// Package stt defines the Provider interface for Speech-to-Text backends.
//
// A provider takes one recorded utterance and returns the recognizer's
// hypotheses, best first. Browsers that can run the Web Speech API never reach
// this package; it serves clients that upload raw audio instead.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
)

// ErrNoAudio is returned when a request carries no audio bytes.
var ErrNoAudio = errors.New("stt: no audio")

// Request describes one utterance to transcribe.
type Request struct {
	// Audio holds the encoded utterance.
	Audio []byte

	// ContentType is the MIME type of Audio, e.g. "audio/wav" or
	// "audio/webm". "audio/l16" marks raw 16-bit little-endian PCM, which
	// providers wrap before upload.
	ContentType string

	// SampleRate is required for "audio/l16" and ignored otherwise.
	SampleRate int

	// Language is the BCP-47 language of the speech (e.g. "en"). Empty uses
	// the provider default.
	Language string
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe recognizes the utterance in req. An utterance with no
	// recognizable speech yields an empty slice and no error.
	Transcribe(ctx context.Context, req Request) ([]Transcript, error)
}
