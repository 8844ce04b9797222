package server

import (
	"log/slog"
	"sync"

	"github.com/MrWong99/translateblitz/internal/game"
	"github.com/MrWong99/translateblitz/internal/grading"
)

// subscriberBuffer bounds the events queued for one slow WebSocket client.
const subscriberBuffer = 64

// Event is one presentation message sent to the browser.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// hub is the [game.Presenter] of one session. It fans every call out to
// the connected event streams without ever blocking the game runner: a
// subscriber whose buffer is full misses the event.
type hub struct {
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

var _ game.Presenter = (*hub)(nil)

func newHub(logger *slog.Logger) *hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &hub{logger: logger, subs: make(map[chan Event]struct{})}
}

// subscribe registers a new event stream. The channel is closed when the
// hub closes or cancel is called.
func (h *hub) subscribe() (events <-chan Event, cancel func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *hub) publish(typ string, payload any) {
	ev := Event{Type: typ, Payload: payload}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Timer ticks are frequent and superseded by the next one.
			if typ != game.EventTimer {
				h.logger.Warn("event stream full, dropping event", "type", typ)
			}
		}
	}
}

// Close ends every event stream.
func (h *hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	return nil
}

func (h *hub) DisplayWord(w game.WordView) { h.publish(game.EventWord, w) }

func (h *hub) DisplayPhase(p game.PhaseView) { h.publish(game.EventPhase, p) }

func (h *hub) DisplayTimer(seconds int, fraction float64) {
	h.publish(game.EventTimer, game.TimerView{Seconds: seconds, Fraction: fraction})
}

func (h *hub) DisplayTranslationFeedback(r grading.TranslationResult) {
	h.publish(game.EventTranslationFeedback, r)
}

func (h *hub) DisplayPronunciationFeedback(r grading.PronunciationResult, attempt int) {
	h.publish(game.EventPronunciationFeedback, game.PronunciationFeedback{PronunciationResult: r, Attempt: attempt})
}

func (h *hub) DisplayOutcome(o game.Outcome) { h.publish(game.EventOutcome, o) }

func (h *hub) PromptDecision(d game.Decision) { h.publish(game.EventDecision, d) }

func (h *hub) Notice(msg string) { h.publish(game.EventNotice, msg) }

func (h *hub) ShowSummary(s game.Summary) { h.publish(game.EventSummary, s) }
