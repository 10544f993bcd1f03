package presence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/companyzero/audioroute/internal/assert"
	"github.com/companyzero/audioroute/internal/testutils"
	"github.com/godbus/dbus/v5"
)

const testHandsfreeUUID = "0000111e-0000-1000-8000-00805f9b34fb"

// testLister is an objectLister with settable replies.
type testLister struct {
	mtx     sync.Mutex
	objects managedObjects
	err     error
}

func (l *testLister) set(objects managedObjects, err error) {
	l.mtx.Lock()
	l.objects, l.err = objects, err
	l.mtx.Unlock()
}

func (l *testLister) managedObjects(context.Context) (managedObjects, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.objects, l.err
}

func connectedHeadset() managedObjects {
	return managedObjects{
		"/org/bluez/hci0/dev_00_11_22": {
			bluezDeviceIface: {
				"Connected": dbus.MakeVariant(true),
				"UUIDs":     dbus.MakeVariant([]string{testHandsfreeUUID}),
			},
		},
	}
}

func TestConnectedAudioDevice(t *testing.T) {
	t.Parallel()

	const (
		handsfree = "0000111E-0000-1000-8000-00805F9B34FB"
		a2dp      = "0000110b-0000-1000-8000-00805f9b34fb"
		hid       = "00001124-0000-1000-8000-00805f9b34fb"
	)

	device := func(connected bool, uuids ...string) map[string]map[string]dbus.Variant {
		return map[string]map[string]dbus.Variant{
			bluezDeviceIface: {
				"Connected": dbus.MakeVariant(connected),
				"UUIDs":     dbus.MakeVariant(uuids),
			},
		}
	}
	adapter := map[string]map[string]dbus.Variant{
		"org.bluez.Adapter1": {"Powered": dbus.MakeVariant(true)},
	}

	tests := []struct {
		name    string
		objects managedObjects
		want    dbus.ObjectPath
	}{{
		name:    "no devices",
		objects: managedObjects{"/org/bluez/hci0": adapter},
	}, {
		name: "disconnected headset",
		objects: managedObjects{
			"/org/bluez/hci0":              adapter,
			"/org/bluez/hci0/dev_00_11_22": device(false, handsfree),
		},
	}, {
		name: "connected keyboard",
		objects: managedObjects{
			"/org/bluez/hci0/dev_00_11_33": device(true, hid),
		},
	}, {
		name: "connected handsfree",
		objects: managedObjects{
			"/org/bluez/hci0/dev_00_11_22": device(true, hid, handsfree),
			"/org/bluez/hci0/dev_00_11_33": device(true, hid),
		},
		want: "/org/bluez/hci0/dev_00_11_22",
	}, {
		name: "connected speaker",
		objects: managedObjects{
			"/org/bluez/hci0/dev_00_11_44": device(true, a2dp),
		},
		want: "/org/bluez/hci0/dev_00_11_44",
	}, {
		name: "missing properties",
		objects: managedObjects{
			"/org/bluez/hci0/dev_00_11_55": {bluezDeviceIface: {}},
		},
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := connectedAudioDevice(tc.objects)
			if ok != (tc.want != "") {
				t.Fatalf("unexpected found: got %v, want %v", ok, tc.want != "")
			}
			if got != tc.want {
				t.Fatalf("unexpected path: got %s, want %s", got, tc.want)
			}
		})
	}
}

// TestBluezQueryFailureMeansAbsent asserts a connected device is reported
// absent once BlueZ stops answering.
func TestBluezQueryFailureMeansAbsent(t *testing.T) {
	t.Parallel()

	s := NewBluezSource(testutils.TestLoggerSys(t, "PRES"))
	c := make(chan bool, 10)
	s.Subscribe(func(present bool) { c <- present })

	var lister testLister
	lister.set(connectedHeadset(), nil)
	s.refresh(context.Background(), &lister)
	assert.ChanWrittenWithVal(t, c, true)
	assert.BoolIs(t, s.IsPresent(), true)

	lister.set(nil, errors.New("org.freedesktop.DBus.Error.ServiceUnknown"))
	s.refresh(context.Background(), &lister)
	assert.ChanWrittenWithVal(t, c, false)
	assert.BoolIs(t, s.IsPresent(), false)

	// Canceled queries do not change the value.
	lister.set(connectedHeadset(), nil)
	s.refresh(context.Background(), &lister)
	assert.ChanWrittenWithVal(t, c, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lister.set(nil, context.Canceled)
	s.refresh(ctx, &lister)
	assert.ChanNotWritten(t, c, 0)
	assert.BoolIs(t, s.IsPresent(), true)
}

// TestBluezSignals asserts signals trigger a new query and a closed
// connection means absent.
func TestBluezSignals(t *testing.T) {
	t.Parallel()

	s := NewBluezSource(testutils.TestLoggerSys(t, "PRES"))
	c := make(chan bool, 10)
	s.Subscribe(func(present bool) { c <- present })

	var lister testLister
	signals := make(chan *dbus.Signal, 1)
	done := make(chan struct{})
	go func() {
		s.run(context.Background(), &lister, signals)
		close(done)
	}()

	lister.set(connectedHeadset(), nil)
	signals <- &dbus.Signal{
		Path: "/org/bluez/hci0/dev_00_11_22",
		Name: propertiesIface + ".PropertiesChanged",
	}
	assert.ChanWrittenWithVal(t, c, true)

	close(signals)
	assert.ChanWrittenWithVal(t, c, false)
	assert.ChanWritten(t, done)
	assert.BoolIs(t, s.IsPresent(), false)
}
