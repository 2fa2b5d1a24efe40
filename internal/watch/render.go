package watch

import (
	"fmt"
	"io"

	"github.com/gosuri/uitable"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
)

const maxColWidth = 32

func renderVehicles(out io.Writer, vehicles []model.Vehicle) {
	table := uitable.New()
	table.MaxColWidth = maxColWidth
	table.AddRow("NUMBER", "DRIVER", "STATUS", "SPEED", "BATTERY", "FUEL", "LOCATION", "DESTINATION", "ETA")
	for _, v := range vehicles {
		eta := "-"
		if v.EstimatedArrival != nil {
			eta = v.EstimatedArrival.String()
		}
		table.AddRow(
			v.VehicleNumber,
			v.DriverName,
			v.Status,
			fmt.Sprintf("%d km/h", v.Speed),
			fmt.Sprintf("%d%%", v.BatteryLevel),
			fmt.Sprintf("%d%%", v.FuelLevel),
			fmt.Sprintf("%.5f,%.5f", v.CurrentLocation.Lat, v.CurrentLocation.Lng),
			v.Destination,
			eta,
		)
	}
	fmt.Fprintln(out, table)
}

func renderStatistics(out io.Writer, s model.Statistics) {
	table := uitable.New()
	table.AddRow("TOTAL", "IDLE", "EN ROUTE", "DELIVERED", "AVG SPEED")
	table.AddRow(s.Total, s.Idle, s.EnRoute, s.Delivered, fmt.Sprintf("%d km/h", s.AverageSpeed))
	fmt.Fprintf(out, "\n%s  statistics\n%s\n", s.Timestamp, table)
}
