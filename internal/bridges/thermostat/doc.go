// Package thermostat translates between cloud thermostats and MQTT climate
// entities.
//
// Each thermostat is presented as one climate entity assembled from three
// independently updating devices: the thermostat itself, its
// operating-status child and its temperature sensor child.
//
// # Architecture
//
//	device change ──► Entity.Publish* ──► {prefix}/{loc}/{id}/thermostat/*_state
//	{prefix}/{loc}/{id}/thermostat/*_command ──► Entity.HandleCommand ──► device.SetInfo
//
// Echoes on the state topics are optimistic: they are published as soon as
// the patch is submitted and corrected by the next change notification if
// the device ends up elsewhere.
//
// # Commands
//
//	mode_command               off | cool | heat | auto | aux
//	temperature_command        setpoint in °C, 10 to 37.22223
//	temperature_high_command   upper auto bound in °C
//	temperature_low_command    lower auto bound in °C
//	fan_mode_command           one of the advertised fan modes
//	aux_command                ON | OFF
//
// Invalid commands are logged, recorded in the command log and dropped.
// Nothing is published for them.
package thermostat
