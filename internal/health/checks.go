package health

import (
	"context"
	"errors"
)

// ErrNoBackend is reported by [Grading] when every grading backend breaker
// is open.
var ErrNoBackend = errors.New("all grading backends are unavailable")

// Pinger is satisfied by the settings stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Availability is satisfied by the LLM fallback group.
type Availability interface {
	Available() bool
}

// Store returns a checker named "settings" that pings the credential store.
func Store(p Pinger) Checker {
	return Checker{Name: "settings", Check: p.Ping}
}

// Grading returns a checker named "grading" that fails while no grading
// backend accepts calls. A nil a means no remote backend is configured,
// which is not a readiness failure.
func Grading(a Availability) Checker {
	return Checker{
		Name: "grading",
		Check: func(context.Context) error {
			if a == nil || a.Available() {
				return nil
			}
			return ErrNoBackend
		},
	}
}
