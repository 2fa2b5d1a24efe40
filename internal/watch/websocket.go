package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
)

const (
	handshakeTimeout = 10 * time.Second
	closeWait        = time.Second
)

type ping struct {
	Type      model.MessageType `json:"type"`
	Timestamp model.Timestamp   `json:"timestamp"`
}

func (w *Watcher) runWebSocket(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, w.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.cfg.URL, err)
	}
	defer conn.Close()

	fmt.Fprintf(w.out, "Connected to %s, waiting for vehicle data...\n", w.cfg.URL)

	// Unblocks ReadMessage with a normal close once ctx ends.
	stop := context.AfterFunc(ctx, func() { sayGoodbye(conn) })
	defer stop()

	if w.cfg.PingDelay > 0 {
		t := time.AfterFunc(w.cfg.PingDelay, func() {
			msg := ping{Type: model.MessagePing, Timestamp: model.NewTimestamp(w.clock.Now())}
			if err := conn.WriteJSON(msg); err != nil {
				w.logger.Error(err, "Failed to send ping")
			}
		})
		defer t.Stop()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				fmt.Fprintf(w.out, "Connection closed by server: %d %s\n", ce.Code, ce.Text)
				return nil
			}
			return err
		}

		if w.handle(data) {
			sayGoodbye(conn)
			return nil
		}
	}
}

func sayGoodbye(conn *websocket.Conn) {
	deadline := time.Now().Add(closeWait)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), deadline)
	_ = conn.SetReadDeadline(deadline)
}
