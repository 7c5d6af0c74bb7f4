// Package control implements the operator-facing disable control of a
// thermal monitor.
//
// The control is textual. Reading it yields the monitor status line
// ("En:0 Poll-time:10 sec\n"); writing a small decimal number toggles
// monitoring, with 1 meaning "disable" and any other value meaning
// "enable". The inversion lives only here: thermal.Monitor works with a
// positive enabled flag.
//
// A Surface is exposed over HTTP by internal/api and over MQTT by
// MQTTBinding. Accepted writes are recorded as toggle events so that the
// operator's choice can be restored after a restart.
package control
