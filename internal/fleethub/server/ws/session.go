package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/looplab/fsm"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/internal/fleethub/registry"
	fsmutil "github.com/autopeer-io/fleetsim/internal/pkg/util/fsm"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

// closeGrace is how long the reader waits for the peer to answer our close frame.
const closeGrace = time.Second

// session is the lifecycle of one subscriber connection. The reader loop
// owns reads, the writer loop owns data frames; both end in EventClose.
type session struct {
	h      *Handler
	conn   *websocket.Conn
	sub    *registry.Subscriber
	fsm    *fsm.FSM
	logger log.Logger

	// closeCode is the close frame status sent to the peer; 0 until decided.
	closeCode   atomic.Int32
	closeReason atomic.Value

	readerDone chan struct{}
	writerDone chan struct{}
}

func newSession(h *Handler, conn *websocket.Conn, sub *registry.Subscriber) *session {
	s := &session{
		h:          h,
		conn:       conn,
		sub:        sub,
		logger:     h.logger.WithValues("subscriber", sub.ID(), "remote", conn.RemoteAddr().String()),
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	s.fsm = newSessionFSM(s)
	return s
}

// run admits the subscriber and drives it to the closed state. It returns
// once the socket has been released.
func (s *session) run(ctx context.Context) {
	if err := s.fsm.Event(ctx, EventAdmit); err != nil {
		s.logger.Error(err, "Failed to admit subscriber")
		s.close(websocket.CloseInternalServerErr, "admission failed")
		s.finish()
		return
	}

	go s.writeLoop()
	go s.readLoop()

	<-s.readerDone
	<-s.writerDone
	s.finish()
}

// close moves the session to closing. Later calls keep the first code.
func (s *session) close(code int, reason string) {
	if s.closeCode.CompareAndSwap(0, int32(code)) {
		s.closeReason.Store(reason)
	}
	if err := s.fsm.Event(context.Background(), EventClose); err != nil && !fsmutil.IsStale(err) {
		s.logger.Error(err, "Failed to close session")
	}
}

func (s *session) finish() {
	if err := s.fsm.Event(context.Background(), EventFinish); err != nil && !fsmutil.IsStale(err) {
		s.logger.Error(err, "Failed to finish session")
	}
}

// State returns the current connection state.
func (s *session) State() string {
	return s.fsm.Current()
}

// --- State callbacks ---

func (s *session) actionEnterOpen(_ context.Context, _ *fsm.Event) error {
	return s.h.registry.RegisterFunc(s.sub, func(sub *registry.Subscriber) error {
		msg := model.NewInitialData(s.h.source.Snapshot(), s.h.updateInterval, s.h.clock.Now())
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode initial data: %w", err)
		}
		return sub.Send(payload)
	})
}

func (s *session) actionEnterClosing(_ context.Context, _ *fsm.Event) error {
	s.h.registry.Unregister(s.sub)
	s.sub.Close()
	s.logger.Info("Subscriber disconnecting", "code", s.closeCode.Load())
	return nil
}

func (s *session) actionEnterClosed(_ context.Context, _ *fsm.Event) error {
	s.h.untrack(s)
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close socket: %w", err)
	}
	s.logger.Debug("Subscriber closed")
	return nil
}

// --- Loops ---

func (s *session) readLoop() {
	defer close(s.readerDone)

	opts := s.h.opts
	_ = s.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		data, err := s.nextFrame(opts.MaxMessageSize)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Warn("Connection read failed", "error", err.Error())
			}
			s.close(websocket.CloseNormalClosure, "")
			return
		}
		if data == nil {
			continue
		}
		s.handleInbound(data)
	}
}

// nextFrame reads one message of at most limit bytes. Larger messages are
// drained and reported as nil so the connection survives them.
func (s *session) nextFrame(limit int64) ([]byte, error) {
	_, r, err := s.conn.NextReader()
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) <= limit {
		return data, nil
	}

	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Ignoring oversized message", "bytes", int64(len(data))+n)
	return nil, nil
}

// handleInbound answers pings; every other payload is ignored.
func (s *session) handleInbound(data []byte) {
	var in model.InboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		s.logger.Debug("Ignoring malformed message", "bytes", len(data))
		return
	}
	if in.Type != model.MessagePing {
		s.logger.Debug("Ignoring message", "type", string(in.Type))
		return
	}

	payload, err := json.Marshal(model.NewPong(s.h.clock.Now()))
	if err != nil {
		s.logger.Error(err, "Failed to encode pong")
		return
	}
	if err := s.sub.Send(payload); err != nil && !errors.Is(err, registry.ErrSubscriberClosed) {
		s.logger.Warn("Dropping subscriber that cannot take a pong", "reason", err.Error())
		s.close(websocket.CloseTryAgainLater, "subscriber too slow")
	}
}

func (s *session) writeLoop() {
	defer close(s.writerDone)
	defer s.sendClose()

	opts := s.h.opts
	ping := s.h.clock.NewTicker(opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case msg := <-s.sub.Outbound():
			if !s.sub.IsOpen() {
				s.dropped()
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Warn("Connection write failed", "error", err.Error())
				s.close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ping.C():
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(opts.WriteWait)); err != nil {
				s.logger.Warn("Keepalive ping failed", "error", err.Error())
				s.close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-s.sub.Done():
			s.dropped()
			return
		}
	}
}

// dropped ends a session whose subscriber was closed. Queued frames are
// discarded. Closed without a code means the registry dropped it for
// falling behind.
func (s *session) dropped() {
	s.close(websocket.CloseTryAgainLater, "subscriber too slow")
}

// sendClose tells the peer we are done and bounds how long the reader waits
// for its reply. A broken socket gets no close frame and the reader is
// released immediately.
func (s *session) sendClose() {
	code := int(s.closeCode.Load())
	if code == websocket.CloseAbnormalClosure {
		_ = s.conn.SetReadDeadline(time.Now())
		return
	}

	reason, _ := s.closeReason.Load().(string)
	deadline := time.Now().Add(s.h.opts.WriteWait)
	if err := s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		s.logger.Debug("Close frame not sent", "error", err.Error())
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(closeGrace))
}
