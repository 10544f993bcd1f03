package router

import (
	"fmt"
	"slices"
	"strings"
)

// Device is a logical audio output.
type Device string

const (
	Speaker   Device = "speaker"
	Earpiece  Device = "earpiece"
	Bluetooth Device = "bluetooth"
	AudioJack Device = "headset"
)

// Valid returns true if d is one of the known devices.
func (d Device) Valid() bool {
	switch d {
	case Speaker, Earpiece, Bluetooth, AudioJack:
		return true
	default:
		return false
	}
}

func (d Device) String() string {
	if d == "" {
		return "(none)"
	}
	return string(d)
}

// ParseDevice parses a device name as used in config files.
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "speaker":
		return Speaker, nil
	case "earpiece":
		return Earpiece, nil
	case "bluetooth", "bt":
		return Bluetooth, nil
	case "headset", "audiojack", "jack", "wired":
		return AudioJack, nil
	default:
		return "", fmt.Errorf("unknown audio device %q", s)
	}
}

// PeripheralClass identifies one of the external presence signals.
type PeripheralClass string

const (
	PeripheralBluetooth PeripheralClass = "bluetooth"
	PeripheralWired     PeripheralClass = "wired"
)

// DeviceSet is an ordered set of devices. Sets built by the router are in
// priority order: AudioJack, Bluetooth, Speaker, Earpiece.
type DeviceSet []Device

// Contains returns true if d is in the set.
func (ds DeviceSet) Contains(d Device) bool {
	return slices.Contains(ds, d)
}

func (ds DeviceSet) String() string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = string(d)
	}
	return "[" + strings.Join(names, " ") + "]"
}

// availableDevices returns the set of usable devices given the presence of
// each peripheral class. Speaker is always usable. Earpiece is only usable
// when no peripheral is connected.
func availableDevices(bt, wired bool) DeviceSet {
	res := make(DeviceSet, 0, 3)
	if wired {
		res = append(res, AudioJack)
	}
	if bt {
		res = append(res, Bluetooth)
	}
	res = append(res, Speaker)
	if !wired && !bt {
		res = append(res, Earpiece)
	}
	return res
}

// priorityDevice returns the device to use when there is no valid pin.
func priorityDevice(bt, wired bool, fallback Device) Device {
	switch {
	case wired:
		return AudioJack
	case bt:
		return Bluetooth
	case fallback == Speaker:
		return Speaker
	default:
		return Earpiece
	}
}
