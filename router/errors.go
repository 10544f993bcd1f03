package router

import (
	"errors"
	"fmt"
)

var (
	ErrNotRunning     = errors.New("audio router is not running")
	ErrAlreadyRunning = errors.New("audio router is already running")
)

// UnavailableDeviceError is returned when selecting a device that is not
// currently available.
type UnavailableDeviceError struct {
	Device Device
}

func (err UnavailableDeviceError) Error() string {
	if !err.Device.Valid() {
		return fmt.Sprintf("unknown audio device %q", string(err.Device))
	}
	return fmt.Sprintf("audio device %s is not available", err.Device)
}

// Is returns true if target is an UnavailableDeviceError for any device.
func (err UnavailableDeviceError) Is(target error) bool {
	_, ok := target.(UnavailableDeviceError)
	return ok
}
