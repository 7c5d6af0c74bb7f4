// Package sink forwards thermal readings and control changes to external
// systems.
//
//   - MQTTState publishes each reading as retained JSON on
//     graylogic/thermal/{name}/state.
//   - Influx queues readings and control changes as InfluxDB points.
//
// Both implement thermal.Observer and never block the poll loop on
// network I/O beyond what their clients buffer.
package sink
