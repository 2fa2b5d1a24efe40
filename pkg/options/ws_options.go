package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*WebSocketOptions)(nil)

// WebSocketOptions tune the per-connection behaviour of the subscription channel.
type WebSocketOptions struct {
	// QueueSize bounds the outbound messages buffered per subscriber.
	QueueSize int `json:"queue-size" mapstructure:"queue-size"`

	// PingInterval is the period of keep-alive ping control frames.
	PingInterval time.Duration `json:"ping-interval" mapstructure:"ping-interval"`

	// PongWait is how long the peer may stay silent before the connection is
	// considered dead. Must exceed PingInterval.
	PongWait time.Duration `json:"pong-wait" mapstructure:"pong-wait"`

	// WriteWait bounds a single frame write.
	WriteWait time.Duration `json:"write-wait" mapstructure:"write-wait"`

	// MaxMessageSize caps the bytes of an inbound message that are inspected.
	// Longer messages are drained and ignored.
	MaxMessageSize int64 `json:"max-message-size" mapstructure:"max-message-size"`

	// AllowedOrigins lists accepted Origin headers. Empty accepts any origin.
	AllowedOrigins []string `json:"allowed-origins" mapstructure:"allowed-origins"`
}

// NewWebSocketOptions creates a WebSocketOptions object with default parameters.
func NewWebSocketOptions() *WebSocketOptions {
	return &WebSocketOptions{
		QueueSize:      16,
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *WebSocketOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("--ws.queue-size must be at least 1, got %d", o.QueueSize))
	}
	if o.PingInterval <= 0 {
		errs = append(errs, fmt.Errorf("--ws.ping-interval must be positive, got %s", o.PingInterval))
	}
	if o.PongWait <= o.PingInterval {
		errs = append(errs, fmt.Errorf("--ws.pong-wait (%s) must exceed --ws.ping-interval (%s)", o.PongWait, o.PingInterval))
	}
	if o.WriteWait <= 0 {
		errs = append(errs, fmt.Errorf("--ws.write-wait must be positive, got %s", o.WriteWait))
	}
	if o.MaxMessageSize <= 0 {
		errs = append(errs, fmt.Errorf("--ws.max-message-size must be positive, got %d", o.MaxMessageSize))
	}
	return errs
}

// AddFlags adds flags for WebSocketOptions to the specified FlagSet.
func (o *WebSocketOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.QueueSize, "ws.queue-size", o.QueueSize, "Outbound messages buffered per subscriber before it is dropped.")
	fs.DurationVar(&o.PingInterval, "ws.ping-interval", o.PingInterval, "Period of keep-alive ping frames.")
	fs.DurationVar(&o.PongWait, "ws.pong-wait", o.PongWait, "Read deadline extended by every pong from the peer.")
	fs.DurationVar(&o.WriteWait, "ws.write-wait", o.WriteWait, "Deadline for writing a single frame.")
	fs.Int64Var(&o.MaxMessageSize, "ws.max-message-size", o.MaxMessageSize, "Inbound messages longer than this many bytes are ignored.")
	fs.StringSliceVar(&o.AllowedOrigins, "ws.allowed-origins", o.AllowedOrigins, "Accepted Origin headers. Empty accepts any origin.")
}
