package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning callback to fsm.Callback. A non-nil
// error is stored on the event and returned by FSM.Event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// IsStale reports whether err only says the event did not apply to the
// current state, as happens when two goroutines race to fire the same event.
func IsStale(err error) bool {
	var invalid fsm.InvalidEventError
	var none fsm.NoTransitionError
	return errors.As(err, &invalid) || errors.As(err, &none)
}
