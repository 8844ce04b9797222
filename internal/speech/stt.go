package speech

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MrWong99/translateblitz/internal/observe"
	"github.com/MrWong99/translateblitz/pkg/provider/stt"
)

// STTRecorder transcribes one uploaded utterance with an [stt.Provider].
type STTRecorder struct {
	provider stt.Provider
	req      stt.Request
	metrics  *observe.Metrics
}

var _ Recorder = (*STTRecorder)(nil)

// NewSTTRecorder returns a recorder for the audio in req. A nil metrics uses
// [observe.DefaultMetrics].
func NewSTTRecorder(p stt.Provider, req stt.Request, metrics *observe.Metrics) *STTRecorder {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &STTRecorder{provider: p, req: req, metrics: metrics}
}

// RecordUtterance implements [Recorder]. Backend failures other than a
// cancelled context are reported as [ErrUnavailable].
func (r *STTRecorder) RecordUtterance(ctx context.Context) ([]Candidate, error) {
	if r.provider == nil {
		return nil, ErrUnavailable
	}
	if len(r.req.Audio) == 0 {
		return nil, ErrNoSpeech
	}

	ctx, span := observe.StartSpan(ctx, "speech.transcribe")
	start := time.Now()
	ts, err := r.provider.Transcribe(ctx, r.req)
	r.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	observe.EndSpan(span, err)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, stt.ErrNoAudio) {
			return nil, ErrNoSpeech
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	cands := make([]Candidate, 0, len(ts))
	for _, t := range ts {
		cands = append(cands, Candidate{
			Transcript: t.Text,
			Confidence: int(math.Round(t.Confidence * 100)),
		})
	}
	if len(cands) == 0 {
		return nil, ErrNoSpeech
	}
	return cands, nil
}
