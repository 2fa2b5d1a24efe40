package simulator

import (
	"time"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
)

// transition is the first stage of a tick: a gated, status-dependent jump.
func (s *Simulator) transition(v *model.Vehicle, now time.Time) {
	if !s.chance(s.rules.TransitionChance) {
		return
	}

	switch v.Status {
	case model.StatusIdle:
		if s.chance(s.rules.DispatchChance) {
			v.Status = model.StatusEnRoute
			v.EstimatedArrival = s.eta(now)
		}
	case model.StatusEnRoute:
		if s.chance(s.rules.DeliverChance) {
			deliver(v)
		}
	case model.StatusDelivered:
		if s.chance(s.rules.ResetChance) {
			v.Status = model.StatusIdle
			v.Destination = destinations[s.rng.IntN(len(destinations))]
		}
	}
}

// move is the second stage, driven by the status the first stage left behind.
func (s *Simulator) move(v *model.Vehicle) {
	switch v.Status {
	case model.StatusIdle, model.StatusDelivered:
		v.CurrentLocation.Lat += s.uniform(s.rules.ParkedJitter)
		v.CurrentLocation.Lng += s.uniform(s.rules.ParkedJitter)
		v.Speed = 0
	case model.StatusEnRoute:
		v.CurrentLocation.Lat += s.uniform(s.rules.MovingJitter)
		v.CurrentLocation.Lng += s.uniform(s.rules.MovingJitter)
		v.Speed = s.speed()
		if s.chance(s.rules.ArrivalChance) {
			deliver(v)
		}
	}
}

// drain takes 0 or 1 point of battery while above the floor. Fuel is not
// consumed and nothing recharges.
func (s *Simulator) drain(v *model.Vehicle) {
	if v.BatteryLevel > s.rules.BatteryFloor {
		v.BatteryLevel -= s.rng.IntN(2)
	}
}

func deliver(v *model.Vehicle) {
	v.Status = model.StatusDelivered
	v.Speed = 0
	v.EstimatedArrival = nil
}
