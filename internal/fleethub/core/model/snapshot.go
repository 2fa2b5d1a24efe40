package model

import "time"

// FleetSnapshot is the complete, ordered set of vehicles at one tick.
// Snapshots own their vehicles and are never mutated after construction.
type FleetSnapshot struct {
	// Tick is the number of Advance calls that produced this state. 0 is the
	// freshly generated fleet.
	Tick uint64

	TakenAt time.Time

	Vehicles []Vehicle
}

// Len returns the number of vehicles.
func (s FleetSnapshot) Len() int { return len(s.Vehicles) }

// Find returns a copy of the vehicle with the given id.
func (s FleetSnapshot) Find(id string) (Vehicle, bool) {
	for i := range s.Vehicles {
		if s.Vehicles[i].ID == id {
			return s.Vehicles[i].Clone(), true
		}
	}
	return Vehicle{}, false
}

// Filter returns copies of the vehicles in the given status, in fleet order.
// The result is never nil.
func (s FleetSnapshot) Filter(status Status) []Vehicle {
	out := make([]Vehicle, 0, len(s.Vehicles))
	for i := range s.Vehicles {
		if s.Vehicles[i].Status == status {
			out = append(out, s.Vehicles[i].Clone())
		}
	}
	return out
}

// Count returns the number of vehicles in the given status.
func (s FleetSnapshot) Count(status Status) int {
	n := 0
	for i := range s.Vehicles {
		if s.Vehicles[i].Status == status {
			n++
		}
	}
	return n
}
