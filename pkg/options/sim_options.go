package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SimulatorOptions)(nil)

// SimulatorOptions configure the simulated fleet and its broadcast cadence.
type SimulatorOptions struct {
	// FleetSize is the number of vehicles generated at startup.
	FleetSize int `json:"fleet-size" mapstructure:"fleet-size"`

	// Interval is the period between broadcast ticks.
	Interval time.Duration `json:"interval" mapstructure:"interval"`

	// InitialDelay is the wait before the first tick.
	InitialDelay time.Duration `json:"initial-delay" mapstructure:"initial-delay"`

	// DevInterval adds a second, faster tick source. Zero disables it.
	DevInterval time.Duration `json:"dev-interval" mapstructure:"dev-interval"`

	// Seed makes the simulation reproducible. Zero means a random seed.
	Seed uint64 `json:"seed" mapstructure:"seed"`
}

// NewSimulatorOptions creates a SimulatorOptions object with default parameters.
func NewSimulatorOptions() *SimulatorOptions {
	return &SimulatorOptions{
		FleetSize:    25,
		Interval:     3 * time.Minute,
		InitialDelay: 5 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *SimulatorOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.FleetSize < 0 {
		errs = append(errs, fmt.Errorf("--sim.fleet-size must not be negative, got %d", o.FleetSize))
	}
	if o.Interval <= 0 {
		errs = append(errs, fmt.Errorf("--sim.interval must be positive, got %s", o.Interval))
	}
	if o.InitialDelay < 0 {
		errs = append(errs, fmt.Errorf("--sim.initial-delay must not be negative, got %s", o.InitialDelay))
	}
	if o.DevInterval < 0 {
		errs = append(errs, fmt.Errorf("--sim.dev-interval must not be negative, got %s", o.DevInterval))
	}
	return errs
}

// AddFlags adds flags for SimulatorOptions to the specified FlagSet.
func (o *SimulatorOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.FleetSize, "sim.fleet-size", o.FleetSize, "Number of simulated vehicles.")
	fs.DurationVar(&o.Interval, "sim.interval", o.Interval, "Period between fleet updates pushed to subscribers.")
	fs.DurationVar(&o.InitialDelay, "sim.initial-delay", o.InitialDelay, "Delay before the first fleet update.")
	fs.DurationVar(&o.DevInterval, "sim.dev-interval", o.DevInterval, "Additional faster update period for development. 0 disables it.")
	fs.Uint64Var(&o.Seed, "sim.seed", o.Seed, "Random seed for a reproducible simulation. 0 picks a random seed.")
}
