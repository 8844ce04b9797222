// Package tts defines the Provider interface for Text-to-Speech backends.
//
// The game speaks one target word at a time, so synthesis is a single
// request/response call returning a playable audio clip.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders req.Text as audio. It returns an error if the text
	// is empty, the backend cannot be reached or ctx is cancelled.
	Synthesize(ctx context.Context, req Request) (Audio, error)
}
