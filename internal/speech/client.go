package speech

import (
	"context"
	"errors"
)

// ErrBusy is returned by [ClientRecorder.Submit] when an earlier submission
// has not been consumed yet.
var ErrBusy = errors.New("speech: previous utterance still pending")

type submission struct {
	cands []Candidate
	err   error
}

// ClientRecorder delivers utterances recognized by the browser. Each call to
// [ClientRecorder.RecordUtterance] consumes the next submission.
//
// It is safe for concurrent use.
type ClientRecorder struct {
	ch chan submission
}

var _ Recorder = (*ClientRecorder)(nil)

// NewClientRecorder returns a recorder holding at most one unconsumed
// submission.
func NewClientRecorder() *ClientRecorder {
	return &ClientRecorder{ch: make(chan submission, 1)}
}

// Submit queues candidates recognized by the client.
func (r *ClientRecorder) Submit(cands []Candidate) error {
	return r.push(submission{cands: append([]Candidate(nil), cands...)})
}

// Fail queues a capture error reported by the client.
func (r *ClientRecorder) Fail(err error) error {
	if err == nil {
		err = ErrUnavailable
	}
	return r.push(submission{err: err})
}

func (r *ClientRecorder) push(s submission) error {
	select {
	case r.ch <- s:
		return nil
	default:
		return ErrBusy
	}
}

// RecordUtterance waits for the next submission or for ctx to end. An empty
// submission yields [ErrNoSpeech].
func (r *ClientRecorder) RecordUtterance(ctx context.Context) ([]Candidate, error) {
	select {
	case s := <-r.ch:
		if s.err != nil {
			return nil, s.err
		}
		if len(s.cands) == 0 {
			return nil, ErrNoSpeech
		}
		return s.cands, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Drain discards an unconsumed submission, if any.
func (r *ClientRecorder) Drain() {
	select {
	case <-r.ch:
	default:
	}
}
