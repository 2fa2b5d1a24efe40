package topic

import (
	"strings"
)

// Topic segments published by the fleet hub. Consumers subscribe to these,
// so renaming one is a breaking change.
const (
	// SegmentFleet groups every fleet-level topic.
	SegmentFleet = "fleet"

	// SuffixVehicles carries the full vehicle_update message of every tick.
	// Structure: {root}/fleet/vehicles
	SuffixVehicles = "vehicles"

	// SuffixStatistics carries the aggregate statistics of every tick.
	// Structure: {root}/fleet/statistics
	SuffixStatistics = "statistics"

	// SuffixStatus is the retained presence topic of the publisher.
	// Structure: {root}/fleet/status
	SuffixStatus = "status"
)

// TopicBuilder encapsulates the logic for constructing MQTT topic strings.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g., "fleetsim/v1").
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
// Leading and trailing slashes are trimmed.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: strings.Trim(root, "/")}
}

// Vehicles returns the topic carrying per-tick vehicle snapshots.
func (b *TopicBuilder) Vehicles() string {
	return b.build(SegmentFleet, SuffixVehicles)
}

// Statistics returns the topic carrying per-tick fleet statistics.
func (b *TopicBuilder) Statistics() string {
	return b.build(SegmentFleet, SuffixStatistics)
}

// Status returns the retained presence topic, also used as the will topic.
func (b *TopicBuilder) Status() string {
	return b.build(SegmentFleet, SuffixStatus)
}

// FleetWildcard matches every fleet topic.
// Result: {root}/fleet/#
func (b *TopicBuilder) FleetWildcard() string {
	return b.build(SegmentFleet, MultiWildcard)
}

// build joins the root with the given segments.
func (b *TopicBuilder) build(segments ...string) string {
	if b.root == "" {
		return strings.Join(segments, "/")
	}
	return b.root + "/" + strings.Join(segments, "/")
}
