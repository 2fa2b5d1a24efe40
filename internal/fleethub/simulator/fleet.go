package simulator

import (
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
)

// Origin is the centre of the generated fleet, downtown San Francisco.
var Origin = model.Location{Lat: 37.7749, Lng: -122.4194}

// originSpread is the half-width of the initial placement around Origin.
const originSpread = 0.1

var driverNames = []string{
	"John Smith", "Maria Garcia", "David Chen", "Sarah Johnson", "Michael Brown",
	"Lisa Wang", "Robert Davis", "Jennifer Wilson", "Carlos Rodriguez", "Emily Taylor",
	"Kevin Lee", "Amanda Martinez", "Daniel Thompson", "Jessica Anderson", "Chris Wilson",
	"Michelle Kim", "Steven Jackson", "Nicole White", "Ryan Harris", "Stephanie Clark",
}

var destinations = []string{
	"Downtown Office Building", "Residential Complex A", "Shopping Mall West", "Industrial District",
	"Airport Terminal 1", "Hospital Center", "University Campus", "Tech Park North",
	"Warehouse District", "Business Center East", "Retail Plaza", "Convention Center",
	"Sports Stadium", "Hotel Downtown", "Manufacturing Plant", "Distribution Center",
	"Corporate Headquarters", "Medical Center", "Shopping District", "Financial District",
}

// randReader feeds uuid generation from the simulator's source so seeded
// fleets get reproducible ids.
type randReader struct {
	rng *rand.Rand
}

var _ io.Reader = randReader{}

func (r randReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := r.rng.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}

func (s *Simulator) generate(n int, initial model.Status, now time.Time) []model.Vehicle {
	fleet := make([]model.Vehicle, 0, n)
	statuses := model.Statuses()

	for i := range n {
		id := uuid.Must(uuid.NewRandomFromReader(randReader{s.rng}))

		status := initial
		if status == "" {
			status = statuses[s.rng.IntN(len(statuses))]
		}

		v := model.Vehicle{
			ID:            id.String(),
			VehicleNumber: fmt.Sprintf("FL-%03d", i+1),
			DriverName:    driverNames[i%len(driverNames)],
			DriverPhone:   fmt.Sprintf("+1%d", 1_000_000_000+s.rng.Int64N(9_000_000_000)),
			Status:        status,
			Destination:   destinations[i%len(destinations)],
			CurrentLocation: model.Location{
				Lat: Origin.Lat + s.uniform(originSpread),
				Lng: Origin.Lng + s.uniform(originSpread),
			},
			LastUpdated:  model.NewTimestamp(now),
			BatteryLevel: 60 + s.rng.IntN(40),
			FuelLevel:    30 + s.rng.IntN(50),
		}
		if status == model.StatusEnRoute {
			v.Speed = s.speed()
			v.EstimatedArrival = s.eta(now)
		}
		fleet = append(fleet, v)
	}
	return fleet
}

// uniform returns a value in [-half, half).
func (s *Simulator) uniform(half float64) float64 {
	return (s.rng.Float64() - 0.5) * 2 * half
}

func (s *Simulator) chance(p float64) bool {
	return s.rng.Float64() < p
}

func (s *Simulator) speed() int {
	return s.rules.MinSpeed + s.rng.IntN(s.rules.MaxSpeed-s.rules.MinSpeed+1)
}

func (s *Simulator) eta(now time.Time) *model.Timestamp {
	d := s.rules.MinETA
	if ms := int64(s.rules.ETASpread / time.Millisecond); ms > 0 {
		d += time.Duration(s.rng.Int64N(ms)) * time.Millisecond
	}
	ts := model.NewTimestamp(now.Add(d))
	return &ts
}
