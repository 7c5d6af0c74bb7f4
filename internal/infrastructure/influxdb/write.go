package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

// Measurement names.
const (
	MeasurementReading = "thermal_reading"
	MeasurementControl = "thermal_control"
)

// WriteReading queues one poll cycle. Non-blocking.
func (c *Client) WriteReading(r thermal.Reading) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(readingPoint(c.site, r))
}

// WriteToggle queues an operator enable/disable request. Non-blocking.
func (c *Client) WriteToggle(monitor string, enabled bool, source string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(togglePoint(c.site, monitor, enabled, source, at))
}

func readingPoint(site string, r thermal.Reading) *write.Point {
	fields := map[string]interface{}{
		"hot":         r.Hot,
		"interval_ms": r.Interval.Milliseconds(),
		"read_error":  r.Err != nil,
	}
	if r.HasValue {
		fields["value"] = int64(r.Value)
	}

	at := r.Time
	if at.IsZero() {
		at = time.Now()
	}

	return write.NewPoint(MeasurementReading, tags(site, map[string]string{"monitor": r.Monitor}), fields, at)
}

func togglePoint(site, monitor string, enabled bool, source string, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementControl,
		tags(site, map[string]string{"monitor": monitor, "source": source}),
		map[string]interface{}{"enabled": enabled},
		at,
	)
}

func tags(site string, t map[string]string) map[string]string {
	if site != "" {
		t["site"] = site
	}
	return t
}
