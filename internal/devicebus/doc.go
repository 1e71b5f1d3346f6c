// Package devicebus connects the device model to the upstream cloud relay.
//
// The relay mirrors cloud device state onto MQTT. Each device has two topics:
//
//	{prefix}/{location}/device/{id}/data   relay -> bridge, JSON snapshot
//	{prefix}/{location}/device/{id}/set    bridge -> relay, JSON patch
//
// A snapshot message looks like:
//
//	{"type": "thermostat", "name": "Hallway", "data": {"mode": "heat", "setPoint": 21}}
//
// The data object may be partial; present fields are merged onto the
// device's current state. The first snapshot for an unknown ID creates the
// device and requires a type.
//
// Bus implements device.Sink so devices publish their patches through it.
package devicebus
