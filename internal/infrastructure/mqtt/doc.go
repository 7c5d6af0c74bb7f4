// Package mqtt provides MQTT connectivity for the thermal monitor.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and retained flags
//   - Subscriptions that survive reconnects
//   - Last Will and Testament on graylogic/system/status
//
// # Topics
//
//	graylogic/thermal/{monitor}/state        retained reading JSON
//	graylogic/thermal/{monitor}/disable      retained "En:0 Poll-time:10 sec"
//	graylogic/thermal/{monitor}/disable/set  control input ("0", "1")
//	graylogic/system/status                  online/offline, LWT
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishRetained(mqtt.Topics{}.State("xo-therm"), payload)
package mqtt
