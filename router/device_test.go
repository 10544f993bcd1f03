package router

import (
	"testing"

	"github.com/companyzero/audioroute/internal/assert"
)

// TestParseDevice tests parsing device names from config strings.
func TestParseDevice(t *testing.T) {
	tests := []struct {
		in      string
		want    Device
		wantErr bool
	}{
		{in: "speaker", want: Speaker},
		{in: " Earpiece ", want: Earpiece},
		{in: "BT", want: Bluetooth},
		{in: "bluetooth", want: Bluetooth},
		{in: "headset", want: AudioJack},
		{in: "audiojack", want: AudioJack},
		{in: "wired", want: AudioJack},
		{in: "hdmi", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDevice(tc.in)
			if tc.wantErr {
				assert.NonNilErr(t, err)
				return
			}
			assert.NilErr(t, err)
			assert.DeepEqual(t, got, tc.want)
			assert.BoolIs(t, got.Valid(), true)
		})
	}
}

// TestAvailableDevices tests the available set for every combination of
// peripherals.
func TestAvailableDevices(t *testing.T) {
	tests := []struct {
		name         string
		bt, wired    bool
		want         DeviceSet
		wantPriority Device
	}{{
		name:         "none",
		want:         DeviceSet{Speaker, Earpiece},
		wantPriority: Earpiece,
	}, {
		name:         "bluetooth",
		bt:           true,
		want:         DeviceSet{Bluetooth, Speaker},
		wantPriority: Bluetooth,
	}, {
		name:         "wired",
		wired:        true,
		want:         DeviceSet{AudioJack, Speaker},
		wantPriority: AudioJack,
	}, {
		name:         "both",
		bt:           true,
		wired:        true,
		want:         DeviceSet{AudioJack, Bluetooth, Speaker},
		wantPriority: AudioJack,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := availableDevices(tc.bt, tc.wired)
			assert.DeepEqual(t, got, tc.want)
			assert.Contains(t, got, Speaker)

			prio := priorityDevice(tc.bt, tc.wired, Earpiece)
			assert.DeepEqual(t, prio, tc.wantPriority)
			assert.Contains(t, got, prio)

			// With a speaker fallback, the speaker replaces the
			// earpiece as the lowest priority device.
			prio = priorityDevice(tc.bt, tc.wired, Speaker)
			assert.Contains(t, got, prio)
		})
	}
}

// TestUnavailableDeviceErrorString tests the error messages.
func TestUnavailableDeviceErrorString(t *testing.T) {
	assert.DeepEqual(t, UnavailableDeviceError{Device: Bluetooth}.Error(),
		"audio device bluetooth is not available")
	assert.DeepEqual(t, UnavailableDeviceError{Device: "hdmi"}.Error(),
		`unknown audio device "hdmi"`)
	assert.DeepEqual(t, DeviceSet{AudioJack, Speaker}.String(), "[headset speaker]")
}

func TestModeText(t *testing.T) {
	for _, m := range []Mode{ModeNormal, ModeCommunication} {
		b, err := m.MarshalText()
		assert.NilErr(t, err)
		var got Mode
		assert.NilErr(t, got.UnmarshalText(b))
		assert.DeepEqual(t, got, m)
	}

	_, err := Mode(7).MarshalText()
	assert.NonNilErr(t, err)
	var m Mode
	assert.NonNilErr(t, m.UnmarshalText([]byte("ringing")))
}
