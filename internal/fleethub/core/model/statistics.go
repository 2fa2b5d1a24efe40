package model

import (
	"math"
	"time"
)

// Statistics aggregates a snapshot by status.
type Statistics struct {
	Total     int `json:"total"`
	Idle      int `json:"idle"`
	EnRoute   int `json:"en_route"`
	Delivered int `json:"delivered"`

	// AverageSpeed is the mean speed over all vehicles, rounded half away from
	// zero. 0 for an empty fleet.
	AverageSpeed int `json:"average_speed"`

	Timestamp Timestamp `json:"timestamp"`
}

// ComputeStatistics aggregates s as of now.
func ComputeStatistics(s FleetSnapshot, now time.Time) Statistics {
	stats := Statistics{
		Total:     s.Len(),
		Timestamp: NewTimestamp(now),
	}

	sum := 0
	for i := range s.Vehicles {
		switch s.Vehicles[i].Status {
		case StatusIdle:
			stats.Idle++
		case StatusEnRoute:
			stats.EnRoute++
		case StatusDelivered:
			stats.Delivered++
		}
		sum += s.Vehicles[i].Speed
	}
	if stats.Total > 0 {
		stats.AverageSpeed = int(math.Round(float64(sum) / float64(stats.Total)))
	}
	return stats
}
