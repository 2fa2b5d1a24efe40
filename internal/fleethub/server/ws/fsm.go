package ws

import (
	"github.com/looplab/fsm"

	fsmutil "github.com/autopeer-io/fleetsim/internal/pkg/util/fsm"
)

// Connection states.
const (
	StateConnecting = "connecting"
	StateOpen       = "open"
	StateClosing    = "closing"
	StateClosed     = "closed"
)

// Connection events.
const (
	// EventAdmit registers the subscriber and queues the initial snapshot.
	EventAdmit = "admit"
	// EventClose stops delivery; fired by whichever side notices the end first.
	EventClose = "close"
	// EventFinish releases the socket once both loops have exited.
	EventFinish = "finish"
)

func newSessionFSM(s *session) *fsm.FSM {
	events := fsm.Events{
		{Name: EventAdmit, Src: []string{StateConnecting}, Dst: StateOpen},
		{Name: EventClose, Src: []string{StateConnecting, StateOpen}, Dst: StateClosing},
		{Name: EventFinish, Src: []string{StateClosing}, Dst: StateClosed},
	}

	callbacks := fsm.Callbacks{
		"enter_" + StateOpen:    fsmutil.WrapEvent(s.actionEnterOpen),
		"enter_" + StateClosing: fsmutil.WrapEvent(s.actionEnterClosing),
		"enter_" + StateClosed:  fsmutil.WrapEvent(s.actionEnterClosed),
	}

	return fsm.NewFSM(StateConnecting, events, callbacks)
}
