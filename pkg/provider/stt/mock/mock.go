// Package mock provides a test double for the stt.Provider interface.
//
//	p := &mock.Provider{
//	    Transcripts: []stt.Transcript{{Text: "house", Confidence: 0.92}},
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/translateblitz/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	Ctx context.Context
	Req stt.Request
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Transcripts is returned by Transcribe.
	Transcripts []stt.Transcript

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// TranscribeCalls records every invocation of Transcribe.
	TranscribeCalls []TranscribeCall
}

var _ stt.Provider = (*Provider)(nil)

// Transcribe records the call and returns Transcripts, TranscribeErr.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) ([]stt.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Req: req})
	if p.TranscribeErr != nil {
		return nil, p.TranscribeErr
	}
	return p.Transcripts, nil
}

// CallCount returns the number of Transcribe invocations. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.TranscribeCalls)
}
