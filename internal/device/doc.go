// Package device models the cloud devices the bridge translates.
//
// A Device is a live, externally owned object: the device bus replaces
// its Data whenever upstream telemetry arrives and notifies subscribers.
// Readers take snapshots with Data() and never hold locks across calls.
// Writes go the other way as a Patch handed to a Sink, which forwards it
// to the physical device without waiting for confirmation.
//
// A Location groups the devices of one site. Thermostats find their
// operating-status and temperature children through it:
//
//	loc := device.NewLocation("loc-1")
//	loc.Add(thermostat)
//	status := loc.Children(thermostat.ID(), device.TypeOperatingStatus)
//
// Device type tags follow the cloud API:
//
//	thermostat                    the thermostat itself
//	thermostat-operating-status   what the HVAC is doing right now
//	sensor.temperature            ambient temperature
package device
