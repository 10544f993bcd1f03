package presence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/godbus/dbus/v5"
)

const (
	bluezBusName       = "org.bluez"
	bluezDeviceIface   = "org.bluez.Device1"
	objectManagerIface = "org.freedesktop.DBus.ObjectManager"
	propertiesIface    = "org.freedesktop.DBus.Properties"
	busIface           = "org.freedesktop.DBus"

	bluezDebounce = 200 * time.Millisecond
)

// audioProfileUUIDs are the service classes of Bluetooth devices able to
// carry call or media audio.
var audioProfileUUIDs = []string{
	"00001108-0000-1000-8000-00805f9b34fb", // Headset
	"00001112-0000-1000-8000-00805f9b34fb", // Headset Audio Gateway
	"0000111e-0000-1000-8000-00805f9b34fb", // Handsfree
	"0000111f-0000-1000-8000-00805f9b34fb", // Handsfree Audio Gateway
	"0000110b-0000-1000-8000-00805f9b34fb", // Audio Sink
	"0000110d-0000-1000-8000-00805f9b34fb", // Advanced Audio Distribution
}

// managedObjects is the reply of ObjectManager.GetManagedObjects.
type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func isAudioDevice(uuids []string) bool {
	for _, uuid := range uuids {
		for _, audioUUID := range audioProfileUUIDs {
			if strings.EqualFold(uuid, audioUUID) {
				return true
			}
		}
	}
	return false
}

// connectedAudioDevice returns the path of a connected Bluetooth device that
// supports an audio profile.
func connectedAudioDevice(objects managedObjects) (dbus.ObjectPath, bool) {
	for path, ifaces := range objects {
		props, ok := ifaces[bluezDeviceIface]
		if !ok {
			continue
		}
		connected, _ := props["Connected"].Value().(bool)
		if !connected {
			continue
		}
		uuids, _ := props["UUIDs"].Value().([]string)
		if isAudioDevice(uuids) {
			return path, true
		}
	}
	return "", false
}

// objectLister lists the objects exported by BlueZ.
type objectLister interface {
	managedObjects(ctx context.Context) (managedObjects, error)
}

// busLister queries BlueZ through a D-Bus connection.
type busLister struct {
	conn *dbus.Conn
}

func (l busLister) managedObjects(ctx context.Context) (managedObjects, error) {
	var objects managedObjects
	obj := l.conn.Object(bluezBusName, "/")
	err := obj.CallWithContext(ctx, objectManagerIface+".GetManagedObjects", 0).Store(&objects)
	return objects, err
}

// BluezSource reports whether a Bluetooth audio device is connected, using the
// BlueZ daemon over the system D-Bus. When BlueZ cannot be queried the source
// reports absent.
type BluezSource struct {
	Signal

	log  slog.Logger
	loop loop
}

// NewBluezSource creates a BlueZ presence source.
func NewBluezSource(log slog.Logger) *BluezSource {
	if log == nil {
		log = slog.Disabled
	}
	return &BluezSource{log: log}
}

// IsPresent returns the presence computed after the last BlueZ signal.
func (s *BluezSource) IsPresent() bool {
	return s.Present()
}

func (s *BluezSource) refresh(ctx context.Context, lister objectLister) {
	objects, err := lister.managedObjects(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Warnf("Unable to list bluetooth devices: %v", err)
		if s.Set(false) {
			s.log.Infof("Bluetooth audio device considered disconnected")
		}
		return
	}

	path, present := connectedAudioDevice(objects)
	if s.Set(present) {
		if present {
			s.log.Infof("Bluetooth audio device %s connected", path)
		} else {
			s.log.Infof("No bluetooth audio device connected")
		}
	}
}

func (s *BluezSource) run(ctx context.Context, lister objectLister, signals <-chan *dbus.Signal) {
	var chanRefresh <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case <-chanRefresh:
			chanRefresh = nil
			s.refresh(ctx, lister)

		case sig, ok := <-signals:
			if !ok {
				s.log.Warnf("D-Bus connection closed")
				s.Set(false)
				return
			}
			s.log.Tracef("D-Bus signal %s from %s", sig.Name, sig.Path)
			chanRefresh = time.After(bluezDebounce)
		}
	}
}

// Start connects to the system bus, queries the connected devices and starts
// listening for BlueZ signals.
func (s *BluezSource) Start(ctx context.Context) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		s.Set(false)
		return fmt.Errorf("unable to connect to system bus: %w", err)
	}

	matches := [][]dbus.MatchOption{{
		dbus.WithMatchSender(bluezBusName),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
	}, {
		dbus.WithMatchSender(bluezBusName),
		dbus.WithMatchInterface(objectManagerIface),
	}, {
		// bluetoothd exiting or restarting.
		dbus.WithMatchInterface(busIface),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, bluezBusName),
	}}
	for _, match := range matches {
		if err := conn.AddMatchSignal(match...); err != nil {
			conn.Close()
			s.Set(false)
			return fmt.Errorf("unable to subscribe to bluez signals: %w", err)
		}
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	lister := busLister{conn: conn}
	s.refresh(ctx, lister)

	err = s.loop.start(ctx, func(ctx context.Context) {
		defer func() {
			conn.RemoveSignal(signals)
			conn.Close()
		}()
		s.run(ctx, lister, signals)
	})
	if err != nil {
		conn.RemoveSignal(signals)
		conn.Close()
	}
	return err
}

// Stop disconnects from the system bus.
func (s *BluezSource) Stop() error {
	s.loop.stop()
	return nil
}
