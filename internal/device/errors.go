package device

import "errors"

// Domain errors for the device package.
var (
	// ErrDeviceNotFound is returned when a device ID does not exist in a location.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when adding a device whose ID is already present.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when a device has no ID or type.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrNoSink is returned by SetInfo when the device has no write path.
	ErrNoSink = errors.New("device: no sink configured")

	// ErrEmptyPatch is returned by SetInfo for a patch that changes nothing.
	ErrEmptyPatch = errors.New("device: empty patch")
)
