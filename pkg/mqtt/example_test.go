package mqtt_test

import (
	"fmt"

	"github.com/autopeer-io/fleetsim/pkg/mqtt/topic"
)

// ExampleTopicBuilder shows the topics the fleet hub publishes to.
func ExampleTopicBuilder() {
	b := topic.NewTopicBuilder("fleetsim/v1/")

	fmt.Println(b.Vehicles())
	fmt.Println(b.Statistics())
	fmt.Println(b.Status())
	fmt.Println(b.FleetWildcard())
	// Output:
	// fleetsim/v1/fleet/vehicles
	// fleetsim/v1/fleet/statistics
	// fleetsim/v1/fleet/status
	// fleetsim/v1/fleet/#
}
