package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/translateblitz/internal/observe"
)

const (
	// EventState carries a full snapshot, sent once when a stream opens.
	EventState = "state"

	eventWriteTimeout = 5 * time.Second
)

// handleEvents handles GET /api/sessions/{id}/events: a WebSocket carrying
// every presentation event of the session as JSON [Event] messages.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h, ok := sess.Presenter.(*hub)
	if !ok {
		writeError(w, r, errNoEventStream)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		observe.Logger(r.Context()).Debug("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	// The client never sends; CloseRead handles pings and notices a close.
	ctx := conn.CloseRead(r.Context())
	log := observe.Logger(ctx).With("session_id", sess.ID())

	events, cancel := h.subscribe()
	defer cancel()

	st, err := sess.Runner.Snapshot(ctx)
	if err != nil {
		conn.Close(websocket.StatusGoingAway, "session closed")
		return
	}
	if err := writeEvent(ctx, conn, Event{Type: EventState, Payload: st}); err != nil {
		return
	}
	log.Debug("event stream opened")

	for {
		select {
		case <-ctx.Done():
			log.Debug("event stream closed by client")
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				log.Debug("event stream write failed", "err", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
