// Package influxdb writes thermostat telemetry to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes and health monitoring. The
// bridge records ambient temperature, the active setpoint and the
// presented action so heating behaviour can be charted over time.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteDeviceMetric("thermostat-1", "temperature_c", 21.5)
//	client.WriteAction("thermostat-1", "heating")
//
// Writes never block the caller. Failures are delivered to the callback
// registered with SetOnError.
package influxdb
