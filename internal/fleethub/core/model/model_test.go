package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func enRoute(id string) Vehicle {
	eta := NewTimestamp(t0.Add(30 * time.Minute))
	return Vehicle{
		ID:               id,
		VehicleNumber:    "FL-001",
		DriverName:       "John Smith",
		DriverPhone:      "+15551234567",
		Status:           StatusEnRoute,
		Destination:      "Airport Terminal 1",
		CurrentLocation:  Location{Lat: 37.77, Lng: -122.41},
		Speed:            42,
		LastUpdated:      NewTimestamp(t0),
		EstimatedArrival: &eta,
		BatteryLevel:     80,
		FuelLevel:        55,
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses() {
		got, ok := ParseStatus(string(s))
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}

	_, ok := ParseStatus("parked")
	assert.False(t, ok)
	assert.False(t, Status("EN_ROUTE").IsValid())
}

func TestVehicleWireShape(t *testing.T) {
	v := enRoute("abc")
	raw, err := json.Marshal(&v)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	want := []string{
		"id", "vehicleNumber", "driverName", "driverPhone", "status", "destination",
		"currentLocation", "speed", "lastUpdated", "estimatedArrival", "batteryLevel", "fuelLevel",
	}
	assert.Len(t, fields, len(want))
	for _, k := range want {
		assert.Contains(t, fields, k)
	}
	assert.Equal(t, "2025-03-14T09:26:53.589Z", fields["lastUpdated"])
	assert.Equal(t, map[string]any{"lat": 37.77, "lng": -122.41}, fields["currentLocation"])

	v.Status, v.Speed, v.EstimatedArrival = StatusIdle, 0, nil
	raw, err = json.Marshal(&v)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"estimatedArrival":null`)
}

func TestTimestampRoundTrip(t *testing.T) {
	in := NewTimestamp(t0.In(time.FixedZone("PST", -8*3600)))
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-14T09:26:53.589Z"`, string(raw))

	var out Timestamp
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.Equal(t0))

	assert.Error(t, json.Unmarshal([]byte(`12`), &out))
}

func TestVehicleCloneIsDeep(t *testing.T) {
	v := enRoute("abc")
	c := v.Clone()
	c.EstimatedArrival.Time = t0
	assert.NotEqual(t, v.EstimatedArrival.Time, c.EstimatedArrival.Time)
}

func TestVehicleValidate(t *testing.T) {
	v := enRoute("abc")
	assert.NoError(t, v.Validate())

	tests := []struct {
		name   string
		mutate func(v *Vehicle)
	}{
		{"eta without en_route", func(v *Vehicle) { v.Status, v.Speed = StatusIdle, 0 }},
		{"en_route without eta", func(v *Vehicle) { v.EstimatedArrival = nil }},
		{"moving while delivered", func(v *Vehicle) { v.Status, v.EstimatedArrival = StatusDelivered, nil }},
		{"battery over 100", func(v *Vehicle) { v.BatteryLevel = 101 }},
		{"negative fuel", func(v *Vehicle) { v.FuelLevel = -1 }},
		{"unknown status", func(v *Vehicle) { v.Status = "parked" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := enRoute("abc")
			tt.mutate(&v)
			assert.Error(t, v.Validate())
		})
	}
}

func TestSnapshotQueries(t *testing.T) {
	idle := enRoute("b")
	idle.Status, idle.Speed, idle.EstimatedArrival = StatusIdle, 0, nil
	s := FleetSnapshot{Vehicles: []Vehicle{enRoute("a"), idle}}

	got, ok := s.Find("b")
	require.True(t, ok)
	assert.Equal(t, StatusIdle, got.Status)
	_, ok = s.Find("zzz")
	assert.False(t, ok)

	assert.Len(t, s.Filter(StatusEnRoute), 1)
	assert.NotNil(t, s.Filter(StatusDelivered))
	assert.Empty(t, s.Filter(StatusDelivered))
	assert.Equal(t, 1, s.Count(StatusIdle))
}

func TestComputeStatistics(t *testing.T) {
	a, b, c := enRoute("a"), enRoute("b"), enRoute("c")
	a.Speed, b.Speed = 20, 21
	c.Status, c.Speed, c.EstimatedArrival = StatusDelivered, 0, nil

	stats := ComputeStatistics(FleetSnapshot{Vehicles: []Vehicle{a, b, c}}, t0)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.EnRoute)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, 0, stats.Idle)
	assert.Equal(t, 14, stats.AverageSpeed) // 41/3 = 13.67

	empty := ComputeStatistics(FleetSnapshot{}, t0)
	assert.Equal(t, 0, empty.AverageSpeed)
	assert.Equal(t, 0, empty.Total)
}

func TestMessages(t *testing.T) {
	s := FleetSnapshot{TakenAt: t0}

	initial := NewInitialData(s, 3*time.Minute, t0)
	assert.Equal(t, MessageInitialData, initial.Type)
	assert.Equal(t, "Connected to Fleet Tracking WebSocket. Updates every 3 minutes.", initial.Message)

	raw, err := json.Marshal(NewVehicleUpdate(s))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"vehicle_update","data":[],"timestamp":"2025-03-14T09:26:53.589Z","message":"Vehicle positions updated automatically"}`, string(raw))

	raw, err = json.Marshal(NewPong(t0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong","timestamp":"2025-03-14T09:26:53.589Z"}`, string(raw))
}

func TestDescribeInterval(t *testing.T) {
	assert.Equal(t, "3 minutes", DescribeInterval(3*time.Minute))
	assert.Equal(t, "1 minute", DescribeInterval(time.Minute))
	assert.Equal(t, "30 seconds", DescribeInterval(30*time.Second))
	assert.Equal(t, "90 seconds", DescribeInterval(90*time.Second))
	assert.Equal(t, "500ms", DescribeInterval(500*time.Millisecond))
}
