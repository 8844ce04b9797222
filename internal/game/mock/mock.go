// Package mock provides a recording test double for game.Presenter.
//
//	p := mock.NewPresenter()
//	r := game.NewRunner(cfg, grader, p)
//	if !p.WaitFor(game.EventOutcome, 1, time.Second) { ... }
package mock

import (
	"sync"
	"time"

	"github.com/MrWong99/translateblitz/internal/game"
	"github.com/MrWong99/translateblitz/internal/grading"
)

// Event is one recorded presenter call.
type Event struct {
	Name    string
	Payload any
}

// Presenter records every call. It is safe for concurrent use.
type Presenter struct {
	mu      sync.Mutex
	events  []Event
	changed chan struct{}
}

var _ game.Presenter = (*Presenter)(nil)

// NewPresenter returns an empty Presenter.
func NewPresenter() *Presenter {
	return &Presenter{changed: make(chan struct{})}
}

func (p *Presenter) record(name string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Name: name, Payload: payload})
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *Presenter) DisplayWord(w game.WordView)   { p.record(game.EventWord, w) }
func (p *Presenter) DisplayPhase(v game.PhaseView) { p.record(game.EventPhase, v) }

func (p *Presenter) DisplayTimer(seconds int, fraction float64) {
	p.record(game.EventTimer, game.TimerView{Seconds: seconds, Fraction: fraction})
}

func (p *Presenter) DisplayTranslationFeedback(r grading.TranslationResult) {
	p.record(game.EventTranslationFeedback, r)
}

func (p *Presenter) DisplayPronunciationFeedback(r grading.PronunciationResult, attempt int) {
	p.record(game.EventPronunciationFeedback, game.PronunciationFeedback{PronunciationResult: r, Attempt: attempt})
}

func (p *Presenter) DisplayOutcome(o game.Outcome)  { p.record(game.EventOutcome, o) }
func (p *Presenter) PromptDecision(d game.Decision) { p.record(game.EventDecision, d) }
func (p *Presenter) Notice(msg string)              { p.record(game.EventNotice, msg) }
func (p *Presenter) ShowSummary(s game.Summary)     { p.record(game.EventSummary, s) }

// Events returns a copy of all recorded events in call order.
func (p *Presenter) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// Count returns how many events named name were recorded.
func (p *Presenter) Count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count(name)
}

func (p *Presenter) count(name string) int {
	n := 0
	for _, e := range p.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// Last returns the payload of the most recent event named name.
func (p *Presenter) Last(name string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Name == name {
			return p.events[i].Payload, true
		}
	}
	return nil, false
}

// WaitFor blocks until at least n events named name were recorded or the
// timeout elapses. It reports whether the count was reached.
func (p *Presenter) WaitFor(name string, n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		p.mu.Lock()
		c, ch := p.count(name), p.changed
		p.mu.Unlock()
		if c >= n {
			return true
		}
		select {
		case <-ch:
		case <-deadline:
			return false
		}
	}
}
