package core

import (
	"context"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
)

// SnapshotNotifier forwards every broadcast snapshot to an external sink.
// In fleetsim, this is implemented by the MQTT outbound adapter.
type SnapshotNotifier interface {
	// Notify publishes the snapshot. Errors are reported, never fatal.
	Notify(ctx context.Context, snapshot model.FleetSnapshot) error
}
