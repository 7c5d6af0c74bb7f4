// Package influxdb writes thermal telemetry to InfluxDB 2.x.
//
// It wraps influxdb-client-go v2 with connection checking, batched
// non-blocking writes and health monitoring.
//
// # Measurements
//
//	thermal_reading  tags: site, monitor
//	                 fields: value (int, absent before the first reading),
//	                         hot (bool), interval_ms (int), read_error (bool)
//	thermal_control  tags: site, monitor, source
//	                 fields: enabled (bool)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReading(reading)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Write errors are delivered
// asynchronously through the callback set with SetOnError.
package influxdb
