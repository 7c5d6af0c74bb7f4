package sink

import (
	"time"

	"github.com/nerrad567/gray-logic-thermal/internal/control"
	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

// PointWriter is the subset of influxdb.Client used by Influx.
type PointWriter interface {
	WriteReading(r thermal.Reading)
	WriteToggle(monitor string, enabled bool, source string, at time.Time)
}

// Influx queues readings and control changes as InfluxDB points.
type Influx struct {
	writer PointWriter
}

// NewInflux creates an Influx sink.
func NewInflux(writer PointWriter) *Influx {
	return &Influx{writer: writer}
}

// ObserveReading implements thermal.Observer.
func (i *Influx) ObserveReading(r thermal.Reading) {
	i.writer.WriteReading(r)
}

// ObserveChange records an accepted toggle. Register it with
// control.Surface.OnChange.
func (i *Influx) ObserveChange(c control.Change) {
	i.writer.WriteToggle(c.Monitor, c.Enabled, c.Source, c.Time)
}
