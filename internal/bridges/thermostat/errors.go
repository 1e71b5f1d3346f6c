package thermostat

import "errors"

// Construction errors.
var (
	// ErrNotThermostat is returned when the bound device is not a thermostat.
	ErrNotThermostat = errors.New("thermostat: device is not a thermostat")

	// ErrChildNotFound is returned when the operating-status or temperature
	// child of a thermostat is missing from the location.
	ErrChildNotFound = errors.New("thermostat: child device not found")
)

// Command errors. Every rejected command wraps exactly one of these.
var (
	// ErrMalformedInput is returned for payloads that are not of the expected shape.
	ErrMalformedInput = errors.New("thermostat: malformed input")

	// ErrOutOfRange is returned for setpoints outside the hardware bounds.
	ErrOutOfRange = errors.New("thermostat: value out of range")

	// ErrUnsupportedValue is returned for modes or fan modes the device does not offer.
	ErrUnsupportedValue = errors.New("thermostat: unsupported value")

	// ErrDeadBandTooSmall is returned when an auto bound would shrink the deadband below the minimum.
	ErrDeadBandTooSmall = errors.New("thermostat: deadband below minimum")

	// ErrUnknownCommand is returned for unrecognised command topics.
	ErrUnknownCommand = errors.New("thermostat: unknown command")

	// ErrStateUnavailable is returned when neither a setpoint nor an ambient
	// temperature is known, so auto bounds cannot be derived.
	ErrStateUnavailable = errors.New("thermostat: state unavailable")

	// ErrWriteFailed is returned when the patch could not be handed to the device.
	ErrWriteFailed = errors.New("thermostat: device write failed")
)

// ErrorKind returns a stable label for a command error, used in the
// command log. It returns "" for nil.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, ErrUnsupportedValue):
		return "unsupported_value"
	case errors.Is(err, ErrDeadBandTooSmall):
		return "deadband_too_small"
	case errors.Is(err, ErrUnknownCommand):
		return "unknown_command"
	case errors.Is(err, ErrStateUnavailable):
		return "state_unavailable"
	case errors.Is(err, ErrWriteFailed):
		return "write_failed"
	default:
		return "internal"
	}
}

// ErrThermostatNotFound is returned by Bridge.Thermostat for unknown IDs.
var ErrThermostatNotFound = errors.New("thermostat: thermostat not found")
