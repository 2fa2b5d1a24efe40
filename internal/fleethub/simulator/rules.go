package simulator

import "time"

// Rules holds the probabilities and ranges of the per-tick random walk.
// Probabilities are in [0,1]; a value of 1 forces a branch, 0 disables it.
type Rules struct {
	// TransitionChance gates the status transition stage as a whole.
	TransitionChance float64
	// DispatchChance moves an idle vehicle en route once the gate passed.
	DispatchChance float64
	// DeliverChance moves an en route vehicle to delivered once the gate passed.
	DeliverChance float64
	// ResetChance moves a delivered vehicle back to idle once the gate passed.
	ResetChance float64
	// ArrivalChance is the movement stage's own chance of delivering an en
	// route vehicle, rolled independently of the transition stage.
	ArrivalChance float64

	// ParkedJitter and MovingJitter are half-widths of the uniform coordinate
	// noise for stationary and en route vehicles.
	ParkedJitter float64
	MovingJitter float64

	// MinSpeed and MaxSpeed bound the en route speed, inclusive.
	MinSpeed int
	MaxSpeed int

	// MinETA and ETASpread place a fresh arrival estimate in
	// [now+MinETA, now+MinETA+ETASpread).
	MinETA    time.Duration
	ETASpread time.Duration

	// BatteryFloor stops the drain once the level is at or below it.
	BatteryFloor int
}

// DefaultRules returns the stock simulation parameters.
func DefaultRules() Rules {
	return Rules{
		TransitionChance: 0.05,
		DispatchChance:   0.7,
		DeliverChance:    0.3,
		ResetChance:      0.4,
		ArrivalChance:    0.1,
		ParkedJitter:     0.00005,
		MovingJitter:     0.001,
		MinSpeed:         20,
		MaxSpeed:         79,
		MinETA:           10 * time.Minute,
		ETASpread:        time.Hour,
		BatteryFloor:     20,
	}
}
