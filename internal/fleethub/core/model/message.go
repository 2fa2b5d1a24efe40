package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType discriminates the frames exchanged on the subscription channel.
type MessageType string

const (
	MessageInitialData   MessageType = "initial_data"
	MessageVehicleUpdate MessageType = "vehicle_update"
	MessagePing          MessageType = "ping"
	MessagePong          MessageType = "pong"
)

const vehicleUpdateNote = "Vehicle positions updated automatically"

// Message is an outbound snapshot frame: initial_data or vehicle_update.
type Message struct {
	Type      MessageType `json:"type"`
	Data      []Vehicle   `json:"data"`
	Timestamp Timestamp   `json:"timestamp"`
	Message   string      `json:"message"`
}

// Pong is the reply to an inbound ping.
type Pong struct {
	Type      MessageType `json:"type"`
	Timestamp Timestamp   `json:"timestamp"`
}

// InboundMessage is a frame sent by a subscriber. Only Type is interpreted.
type InboundMessage struct {
	Type      MessageType     `json:"type"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// NewInitialData builds the full-state frame sent once on admission.
func NewInitialData(s FleetSnapshot, interval time.Duration, now time.Time) Message {
	return Message{
		Type:      MessageInitialData,
		Data:      vehicles(s),
		Timestamp: NewTimestamp(now),
		Message:   fmt.Sprintf("Connected to Fleet Tracking WebSocket. Updates every %s.", DescribeInterval(interval)),
	}
}

// NewVehicleUpdate builds the frame broadcast on every tick. It is stamped
// with the time the snapshot was taken.
func NewVehicleUpdate(s FleetSnapshot) Message {
	return Message{
		Type:      MessageVehicleUpdate,
		Data:      vehicles(s),
		Timestamp: NewTimestamp(s.TakenAt),
		Message:   vehicleUpdateNote,
	}
}

// NewPong builds the reply to an inbound ping.
func NewPong(now time.Time) Pong {
	return Pong{Type: MessagePong, Timestamp: NewTimestamp(now)}
}

// DescribeInterval renders d for humans: "3 minutes", "90 seconds", "1.5s".
func DescribeInterval(d time.Duration) string {
	switch {
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	case d >= time.Second && d%time.Second == 0:
		return plural(int(d/time.Second), "second")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// vehicles keeps data an array on the wire even for an empty fleet.
func vehicles(s FleetSnapshot) []Vehicle {
	if s.Vehicles == nil {
		return []Vehicle{}
	}
	return s.Vehicles
}
