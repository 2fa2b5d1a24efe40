package options

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetsim/internal/watch"
	"github.com/autopeer-io/fleetsim/pkg/app"
	"github.com/autopeer-io/fleetsim/pkg/log"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

type WatchOptions struct {
	URL           string        `json:"url" mapstructure:"url"`
	Source        string        `json:"source" mapstructure:"source"`
	PingDelay     time.Duration `json:"ping-delay" mapstructure:"ping-delay"`
	Count         int           `json:"count" mapstructure:"count"`
	HealthAddr    string        `json:"health-addr" mapstructure:"health-addr"`
	HealthTimeout time.Duration `json:"health-timeout" mapstructure:"health-timeout"`

	MqttOptions *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	Log         *log.Options         `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*WatchOptions)(nil)
	_ app.LoggerOptions       = (*WatchOptions)(nil)
)

func NewWatchOptions() *WatchOptions {
	o := &WatchOptions{
		URL:           "ws://localhost:3001",
		Source:        watch.SourceWebSocket,
		PingDelay:     2 * time.Second,
		HealthTimeout: 5 * time.Second,
		MqttOptions:   options.NewMqttOptions(),
		Log:           log.NewOptions(),
	}
	// the table goes to stdout; keep logs out of its way
	o.Log.Level = "warn"
	o.Log.OutputPaths = []string{"stderr"}

	return o
}

func (o *WatchOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.addWatchFlags(fss.FlagSet("watch"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *WatchOptions) addWatchFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.URL, "url", o.URL, "WebSocket endpoint of the fleetsim server.")
	fs.StringVar(&o.Source, "source", o.Source, "Where to read updates from: 'ws' or 'mqtt'.")
	fs.DurationVar(&o.PingDelay, "ping-delay", o.PingDelay, "Delay before the test ping. 0 disables it.")
	fs.IntVar(&o.Count, "count", o.Count, "Exit after this many fleet messages. 0 watches until interrupted.")
	fs.StringVar(&o.HealthAddr, "health-addr", o.HealthAddr, "gRPC health address checked before watching. Empty skips the check.")
	fs.DurationVar(&o.HealthTimeout, "health-timeout", o.HealthTimeout, "Timeout of the gRPC health check.")
}

func (o *WatchOptions) Complete() error {
	// following the mirror implies a broker
	if o.Source == watch.SourceMQTT {
		o.MqttOptions.Enabled = true
	}
	return nil
}

func (o *WatchOptions) Validate() error {
	errs := []error{}
	switch o.Source {
	case watch.SourceWebSocket:
		u, err := url.Parse(o.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, fmt.Errorf("--url must be a ws:// or wss:// URL, got %q", o.URL))
		}
	case watch.SourceMQTT:
	default:
		errs = append(errs, fmt.Errorf("--source must be %q or %q, got %q", watch.SourceWebSocket, watch.SourceMQTT, o.Source))
	}
	if o.Count < 0 {
		errs = append(errs, errors.New("--count must not be negative"))
	}
	if o.HealthAddr != "" {
		if err := options.ValidateAddress(o.HealthAddr); err != nil {
			errs = append(errs, fmt.Errorf("--health-addr: %w", err))
		}
	}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *WatchOptions) LogOptions() *log.Options { return o.Log }

func (o *WatchOptions) Config() *watch.Config {
	return &watch.Config{
		URL:           o.URL,
		PingDelay:     o.PingDelay,
		Count:         o.Count,
		Source:        o.Source,
		HealthAddr:    o.HealthAddr,
		HealthTimeout: o.HealthTimeout,
		MqttOptions:   o.MqttOptions,
	}
}
