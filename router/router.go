// Package router implements the audio output routing policy: it tracks which
// peripherals are connected, decides which output device an active call or
// media session uses and applies that decision through a command sink.
package router

import (
	"context"
	"sync"

	"github.com/companyzero/audioroute/internal/ntfn"
	"github.com/companyzero/audioroute/presence"
	"github.com/decred/slog"
)

// Router selects the active audio output device.
//
// The default device is chosen by priority: a wired headset, then a Bluetooth
// headset, then the fallback device (the last active of Speaker or Earpiece).
// Callers may pin a device with SelectDevice. A pinned device is kept until
// it becomes unavailable, at which point the router reverts to the priority
// default.
type Router struct {
	cfg   config
	log   slog.Logger
	sink  CommandSink
	bt    PresenceSource
	wired PresenceSource
	stats *stats

	observers ntfn.Handlers[OnDeviceChanged]

	// lifeMtx serializes Start and Stop. regs is only accessed with it
	// held.
	lifeMtx sync.Mutex
	regs    []presence.Registration

	// evalMtx is held during every routing evaluation, from reading the
	// presence state until observers have been notified, so that two
	// concurrent presence changes are applied one after the other.
	evalMtx sync.Mutex

	// mtx guards the following fields. They are only modified with
	// evalMtx also held, so that readers (including observers) never
	// block on an evaluation in progress.
	mtx          sync.Mutex
	running      bool
	btPresent    bool
	wiredPresent bool
	selected     Device
	pinned       Device
	fallback     Device
}

// New creates a router that applies its decisions to sink and tracks the
// Bluetooth and wired headset presence sources.
func New(sink CommandSink, bt, wired PresenceSource, opts ...Option) *Router {
	cfg := fillConfig(opts...)
	r := &Router{
		cfg:      cfg,
		log:      cfg.log,
		sink:     sink,
		bt:       bt,
		wired:    wired,
		stats:    newStats(),
		selected: Speaker,
		fallback: Speaker,
	}
	for _, h := range cfg.observers {
		r.observers.Register(h)
	}
	r.stats.setSelected(Speaker)
	return r
}

// CurrentDevice returns the active output device.
func (r *Router) CurrentDevice() Device {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.selected
}

// AvailableDevices returns the devices that may currently be selected, in
// priority order.
func (r *Router) AvailableDevices() DeviceSet {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return availableDevices(r.btPresent, r.wiredPresent)
}

// PinnedDevice returns the device pinned by SelectDevice, if any.
func (r *Router) PinnedDevice() (Device, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.pinned, r.pinned != ""
}

// IsAuxiliaryDevicePresent returns true if a Bluetooth or wired headset is
// connected.
func (r *Router) IsAuxiliaryDevicePresent() bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.btPresent || r.wiredPresent
}

func (r *Router) isRunning() bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.running
}

func (r *Router) sinkError(what string, err error) {
	if err == nil {
		return
	}
	r.stats.sinkErrors.Inc()
	r.log.Warnf("Unable to %s: %v", what, err)
}

// applyCommands issues the sink commands that route audio to target. Errors
// are logged and otherwise ignored.
func (r *Router) applyCommands(prev, target Device) {
	if prev == Bluetooth && target != Bluetooth {
		r.sinkError("stop bluetooth sco", r.sink.SetBluetoothSco(false))
	}

	switch target {
	case Speaker:
		r.sinkError("enable speakerphone", r.sink.SetSpeakerphone(true))
	case Bluetooth:
		r.sinkError("start bluetooth sco", r.sink.SetBluetoothSco(true))
		r.sinkError("disable speakerphone", r.sink.SetSpeakerphone(false))
	case Earpiece, AudioJack:
		r.sinkError("disable speakerphone", r.sink.SetSpeakerphone(false))
	}
}

// setDevice routes audio to target and notifies observers. Nothing happens
// when target is already selected, unless forceCmd (re-issue the sink
// commands) or forceNotify (notify observers) are set.
//
// Must be called with evalMtx held.
func (r *Router) setDevice(target Device, available DeviceSet, forceCmd, forceNotify bool) {
	r.mtx.Lock()
	prev := r.selected
	r.mtx.Unlock()

	changed := prev != target
	if !changed && !forceCmd && !forceNotify {
		return
	}

	if changed || forceCmd {
		r.log.Debugf("Routing audio to %s (previous %s, available %s)",
			target, prev, available)
		r.applyCommands(prev, target)
	}

	r.mtx.Lock()
	r.selected = target
	if target == Speaker || target == Earpiece {
		r.fallback = target
	}
	r.mtx.Unlock()

	r.stats.setSelected(target)
	if changed {
		r.stats.routeChanges.WithLabelValues(string(target)).Inc()
		r.log.Infof("Audio output changed to %s", target)
	}
	if changed || forceNotify {
		r.notifyDeviceChanged(target, available)
	}
}

// refreshPresence queries both sources and stores the result. changed is true
// if either differs from the stored value.
//
// Must be called with evalMtx held.
func (r *Router) refreshPresence() (bt, wired, changed bool) {
	bt = r.bt.IsPresent()
	wired = r.wired.IsPresent()

	r.mtx.Lock()
	changed = bt != r.btPresent || wired != r.wiredPresent
	r.btPresent = bt
	r.wiredPresent = wired
	r.mtx.Unlock()

	r.stats.setPresent(PeripheralBluetooth, bt)
	r.stats.setPresent(PeripheralWired, wired)
	return bt, wired, changed
}

// reevaluate applies the routing policy after the presence state changed.
//
// Must be called with evalMtx held.
func (r *Router) reevaluate(bt, wired bool) {
	available := availableDevices(bt, wired)

	r.mtx.Lock()
	pinned := r.pinned
	fallback := r.fallback
	r.mtx.Unlock()

	if pinned != "" {
		if available.Contains(pinned) {
			r.log.Debugf("Keeping pinned device %s (available %s)",
				pinned, available)
			return
		}

		r.log.Infof("Pinned device %s is no longer available", pinned)
		r.mtx.Lock()
		r.pinned = ""
		r.mtx.Unlock()
	}

	r.setDevice(priorityDevice(bt, wired, fallback), available, false, false)
}

// presenceChanged is called by the presence sources.
func (r *Router) presenceChanged(class PeripheralClass, present bool) {
	r.evalMtx.Lock()
	defer r.evalMtx.Unlock()

	r.mtx.Lock()
	if !r.running {
		r.mtx.Unlock()
		r.log.Debugf("Ignoring %s presence change (%v) while stopped",
			class, present)
		return
	}
	switch class {
	case PeripheralBluetooth:
		r.btPresent = present
	case PeripheralWired:
		r.wiredPresent = present
	}
	bt, wired := r.btPresent, r.wiredPresent
	r.mtx.Unlock()

	r.stats.presenceEvents.WithLabelValues(string(class)).Inc()
	r.stats.setPresent(class, present)
	r.log.Debugf("Peripheral %s present: %v", class, present)

	r.reevaluate(bt, wired)
}

func (r *Router) startSource(ctx context.Context, class PeripheralClass, src PresenceSource) {
	if err := src.Start(ctx); err != nil {
		r.log.Warnf("Unable to start %s presence source: %v", class, err)
	}
}

func (r *Router) stopSource(class PeripheralClass, src PresenceSource) {
	if err := src.Stop(); err != nil {
		r.log.Warnf("Unable to stop %s presence source: %v", class, err)
	}
}

// Start puts the audio session in communication mode, starts tracking the
// presence sources and routes audio to the priority default device.
//
// Presence sources that fail to start are logged and treated as absent.
func (r *Router) Start(ctx context.Context) error {
	r.lifeMtx.Lock()
	defer r.lifeMtx.Unlock()

	if r.isRunning() {
		return ErrAlreadyRunning
	}

	r.regs = []presence.Registration{
		r.bt.Subscribe(func(present bool) {
			r.presenceChanged(PeripheralBluetooth, present)
		}),
		r.wired.Subscribe(func(present bool) {
			r.presenceChanged(PeripheralWired, present)
		}),
	}

	// Sources are started without holding evalMtx: they may deliver an
	// event synchronously, which is ignored until running is set. The
	// evaluation below reads their fresh state anyway.
	r.startSource(ctx, PeripheralBluetooth, r.bt)
	r.startSource(ctx, PeripheralWired, r.wired)

	r.evalMtx.Lock()
	defer r.evalMtx.Unlock()

	fallback := r.cfg.fallback
	if fallback == "" {
		fallback = Earpiece
		if r.sink.IsSpeakerphoneOn() {
			fallback = Speaker
		}
	}

	r.sinkError("set communication mode", r.sink.SetMode(ModeCommunication))
	bt, wired, _ := r.refreshPresence()

	r.mtx.Lock()
	r.running = true
	r.pinned = ""
	r.fallback = fallback
	r.mtx.Unlock()

	available := availableDevices(bt, wired)
	target := priorityDevice(bt, wired, fallback)
	r.log.Infof("Starting audio router (available %s, fallback %s)",
		available, fallback)
	r.setDevice(target, available, true, true)
	return nil
}

// Stop stops tracking the presence sources, restores the normal audio mode
// and routes audio to the speaker. Failures are logged and not returned.
//
// It is safe to call Stop multiple times or before Start.
func (r *Router) Stop() {
	r.lifeMtx.Lock()
	defer r.lifeMtx.Unlock()

	// Wait for any in-flight evaluation before flagging the router as
	// stopped.
	r.evalMtx.Lock()
	r.mtx.Lock()
	wasRunning := r.running
	r.running = false
	r.mtx.Unlock()
	r.evalMtx.Unlock()

	if !wasRunning {
		return
	}

	for _, reg := range r.regs {
		reg.Unregister()
	}
	r.regs = nil

	// Sources are stopped outside evalMtx because their goroutines may be
	// blocked delivering an event.
	r.stopSource(PeripheralBluetooth, r.bt)
	r.stopSource(PeripheralWired, r.wired)

	r.evalMtx.Lock()
	defer r.evalMtx.Unlock()

	r.sinkError("restore normal mode", r.sink.SetMode(ModeNormal))

	r.mtx.Lock()
	r.pinned = ""
	bt, wired := r.btPresent, r.wiredPresent
	r.mtx.Unlock()

	r.setDevice(Speaker, availableDevices(bt, wired), true, false)
	r.log.Infof("Stopped audio router")
}

// SelectDevice pins d as the output device. It fails with an
// UnavailableDeviceError if d is not currently available, in which case
// nothing changes.
func (r *Router) SelectDevice(d Device) error {
	if !d.Valid() {
		r.stats.rejected.Inc()
		return UnavailableDeviceError{Device: d}
	}

	r.evalMtx.Lock()
	defer r.evalMtx.Unlock()

	if !r.isRunning() {
		return ErrNotRunning
	}

	bt, wired, changed := r.refreshPresence()
	if changed {
		// The sources changed state but their events were not
		// processed yet. Apply the new state before deciding.
		r.reevaluate(bt, wired)
	}

	available := availableDevices(bt, wired)
	if !available.Contains(d) {
		r.stats.rejected.Inc()
		r.log.Debugf("Rejecting selection of %s (available %s)", d, available)
		return UnavailableDeviceError{Device: d}
	}

	r.mtx.Lock()
	r.pinned = d
	r.mtx.Unlock()
	r.log.Infof("Pinned audio output to %s", d)

	r.setDevice(d, available, false, false)
	return nil
}

// SwitchDevice toggles between the speaker and the earpiece. Any device other
// than the speaker switches to the speaker.
func (r *Router) SwitchDevice() error {
	target := Speaker
	if r.CurrentDevice() == Speaker {
		target = Earpiece
	}
	return r.SelectDevice(target)
}
