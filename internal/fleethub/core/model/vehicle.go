package model

import (
	"errors"
	"fmt"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Vehicle is one tracked asset of the fleet.
// Only the simulator mutates vehicles; everybody else works on copies.
type Vehicle struct {
	// ID is an opaque unique token assigned at creation. Never reassigned.
	ID string `json:"id"`

	// VehicleNumber is the display label, e.g. FL-007.
	VehicleNumber string `json:"vehicleNumber"`

	DriverName  string `json:"driverName"`
	DriverPhone string `json:"driverPhone"`

	Status      Status `json:"status"`
	Destination string `json:"destination"`

	CurrentLocation Location `json:"currentLocation"`

	// Speed in km/h. Zero unless en route.
	Speed int `json:"speed"`

	LastUpdated Timestamp `json:"lastUpdated"`

	// EstimatedArrival is set iff Status is en_route.
	EstimatedArrival *Timestamp `json:"estimatedArrival"`

	BatteryLevel int `json:"batteryLevel"`
	FuelLevel    int `json:"fuelLevel"`
}

// Clone returns a deep copy of v.
func (v *Vehicle) Clone() Vehicle {
	out := *v
	if v.EstimatedArrival != nil {
		eta := *v.EstimatedArrival
		out.EstimatedArrival = &eta
	}
	return out
}

// Validate checks the invariants every vehicle must satisfy after each tick.
func (v *Vehicle) Validate() error {
	var errs []error

	if v.ID == "" {
		errs = append(errs, errors.New("empty id"))
	}
	if !v.Status.IsValid() {
		errs = append(errs, fmt.Errorf("invalid status %q", v.Status))
	}
	if (v.EstimatedArrival != nil) != (v.Status == StatusEnRoute) {
		errs = append(errs, fmt.Errorf("estimated arrival presence does not match status %q", v.Status))
	}
	if v.Status != StatusEnRoute && v.Speed != 0 {
		errs = append(errs, fmt.Errorf("speed %d while %s", v.Speed, v.Status))
	}
	if v.Speed < 0 {
		errs = append(errs, fmt.Errorf("negative speed %d", v.Speed))
	}
	if v.BatteryLevel < 0 || v.BatteryLevel > 100 {
		errs = append(errs, fmt.Errorf("battery level %d out of range", v.BatteryLevel))
	}
	if v.FuelLevel < 0 || v.FuelLevel > 100 {
		errs = append(errs, fmt.Errorf("fuel level %d out of range", v.FuelLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("vehicle %s: %w", v.ID, errors.Join(errs...))
	}
	return nil
}
