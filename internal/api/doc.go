// Package api implements the read-only HTTP status API of the thermostat
// bridge.
//
// This package provides:
//   - Health endpoint aggregating the bridge's dependencies
//   - Presented state of every thermostat, as published on MQTT
//   - The command log of each thermostat
//
// # Endpoints
//
//	GET /api/v1/health
//	GET /api/v1/thermostats
//	GET /api/v1/thermostats/{id}
//	GET /api/v1/thermostats/{id}/commands?outcome=&limit=&offset=
//
// Commands are not accepted over HTTP. Controllers send them on the MQTT
// command topics.
package api
