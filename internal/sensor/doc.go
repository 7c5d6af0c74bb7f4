// Package sensor provides temperature sources for thermal monitors.
//
// Two sources are available:
//   - Sysfs reads an integer attribute such as
//     /sys/class/thermal/thermal_zone0/temp, optionally scaled by a divisor.
//   - MQTT caches the latest value published on a topic and reports
//     ErrNoData before the first value and ErrStale once it is too old.
//
// New builds either from the sensor block of a monitor's configuration.
package sensor
