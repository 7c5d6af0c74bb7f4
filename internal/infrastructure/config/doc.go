// Package config handles loading and validating the thermal monitor configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with THERMALMON_* environment variables
//   - Validation of sites, monitors and service settings
//   - Default value handling
//
// Monitor polling properties (poll_time_ms, hot_poll_time_ms, hot_crit_temp)
// are not validated here. A monitor with a missing property fails at start
// and is skipped, while the others keep running.
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, m := range cfg.Monitors {
//	    fmt.Println(m.Name, m.IsEnabled())
//	}
package config
