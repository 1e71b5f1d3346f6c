package devicebus

import "errors"

var (
	// ErrMalformedSnapshot is returned for snapshot payloads that cannot be decoded.
	ErrMalformedSnapshot = errors.New("devicebus: malformed snapshot")

	// ErrNotConnected is returned when publishing a patch while the broker is unreachable.
	ErrNotConnected = errors.New("devicebus: not connected")

	// ErrStartupTimeout is returned by WaitForDevices when no complete thermostat appears in time.
	ErrStartupTimeout = errors.New("devicebus: no complete thermostat discovered")
)
