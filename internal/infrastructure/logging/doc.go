// Package logging provides structured logging for the thermal monitor.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same handler, level and default fields.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	monLog := logger.Component("thermal").With("monitor", "xo-therm")
//	monLog.Warn("thermal read failed", "error", err)
//
// Sensor failures are logged at warn; a failed rearm is logged at error
// because the monitor stops polling until it is re-enabled.
package logging
