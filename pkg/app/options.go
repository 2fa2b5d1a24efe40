package app

import (
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetsim/pkg/log"
)

// CliOptions abstracts configuration options for reading parameters from the
// command line.
type CliOptions interface {
	// Complete fills in any fields not set that are required to have valid data.
	Complete() error

	// Validate checks the options and returns every problem found at once.
	Validate() error
}

// NamedFlagSetOptions are CliOptions that register their flags in named
// sections, printed grouped in --help.
type NamedFlagSetOptions interface {
	CliOptions

	// Flags returns the flag sets, keyed by section name.
	Flags() cliflag.NamedFlagSets
}

// LoggerOptions is implemented by options carrying a log section. The
// global logger is initialized from it once the options are valid.
type LoggerOptions interface {
	LogOptions() *log.Options
}
