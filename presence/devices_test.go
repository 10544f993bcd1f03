package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/companyzero/audioroute/internal/assert"
	"github.com/companyzero/audioroute/internal/audio"
	"github.com/decred/slog"
)

type testDeviceList struct {
	mtx     sync.Mutex
	devices []audio.Device
	err     error
}

func (l *testDeviceList) set(devices []audio.Device, err error) {
	l.mtx.Lock()
	l.devices, l.err = devices, err
	l.mtx.Unlock()
}

func (l *testDeviceList) list(slog.Logger) ([]audio.Device, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.devices, l.err
}

// TestDeviceListSource asserts the device list source follows the listed
// devices.
func TestDeviceListSource(t *testing.T) {
	t.Parallel()

	builtin := audio.Device{ID: "0", Name: "Built-in Audio Analog Stereo", IsDefault: true}
	headset := audio.Device{ID: "1", Name: "USB Headset"}
	btHeadset := audio.Device{ID: "2", Name: "bluez_output.Jabra Headset.1"}

	// A bluetooth headset does not count as a wired one.
	var devs testDeviceList
	devs.set([]audio.Device{builtin, btHeadset}, nil)

	s := NewDeviceListSource([]string{"headset", "headphone"},
		WithDeviceExcludes([]string{"bluez", "bluetooth"}),
		WithDevicePollInterval(10*time.Millisecond))
	s.list = devs.list
	c := make(chan bool, 10)
	s.Subscribe(func(present bool) { c <- present })

	assert.NilErr(t, s.Start(context.Background()))
	defer s.Stop()
	assert.BoolIs(t, s.IsPresent(), false)

	devs.set([]audio.Device{builtin, btHeadset, headset}, nil)
	assert.ChanWrittenWithVal(t, c, true)

	// Listing failures are reported as absent.
	devs.set(nil, errors.New("boom"))
	assert.ChanWrittenWithVal(t, c, false)

	devs.set([]audio.Device{headset}, nil)
	assert.ChanWrittenWithVal(t, c, true)
	assert.BoolIs(t, s.IsPresent(), true)
}
