package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetsim/internal/fleethub"
	"github.com/autopeer-io/fleetsim/pkg/app"
	"github.com/autopeer-io/fleetsim/pkg/log"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

type ServerOptions struct {
	HttpOptions      *options.HttpOptions      `json:"http" mapstructure:"http"`
	GrpcOptions      *options.GrpcOptions      `json:"grpc" mapstructure:"grpc"`
	MqttOptions      *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	SimulatorOptions *options.SimulatorOptions `json:"sim" mapstructure:"sim"`
	WebSocketOptions *options.WebSocketOptions `json:"ws" mapstructure:"ws"`
	Log              *log.Options              `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*ServerOptions)(nil)
	_ app.LoggerOptions       = (*ServerOptions)(nil)
)

func NewServerOptions() *ServerOptions {
	o := &ServerOptions{
		HttpOptions:      options.NewHttpOptions(),
		GrpcOptions:      options.NewGrpcOptions(),
		MqttOptions:      options.NewMqttOptions(),
		SimulatorOptions: options.NewSimulatorOptions(),
		WebSocketOptions: options.NewWebSocketOptions(),
		Log:              log.NewOptions(),
	}

	return o
}

func (o *ServerOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.GrpcOptions.AddFlags(fss.FlagSet("grpc"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.SimulatorOptions.AddFlags(fss.FlagSet("sim"))
	o.WebSocketOptions.AddFlags(fss.FlagSet("ws"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

// Complete derives settings that depend on other groups.
func (o *ServerOptions) Complete() error {
	if o.Log.Name == "" {
		o.Log.Name = "fleetsim"
	}
	return nil
}

func (o *ServerOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.GrpcOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.SimulatorOptions.Validate()...)
	errs = append(errs, o.WebSocketOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *ServerOptions) LogOptions() *log.Options { return o.Log }

func (o *ServerOptions) Config() (*fleethub.Config, error) {
	return &fleethub.Config{
		HttpOptions:      o.HttpOptions,
		GrpcOptions:      o.GrpcOptions,
		MqttOptions:      o.MqttOptions,
		SimulatorOptions: o.SimulatorOptions,
		WebSocketOptions: o.WebSocketOptions,
	}, nil
}
