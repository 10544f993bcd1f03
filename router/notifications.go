package router

// OnDeviceChanged is called after the selected device changes. available is
// a snapshot of the devices usable at the time of the change.
//
// It is called synchronously from the goroutine that triggered the change.
// Handlers may call the router's read-only methods but must not call Start,
// Stop, SelectDevice or SwitchDevice.
type OnDeviceChanged func(selected Device, available DeviceSet)

// NotificationRegistration is returned when registering an observer.
type NotificationRegistration struct {
	unreg func() bool
}

// Unregister removes the observer. It returns true only the first time it is
// called.
func (reg NotificationRegistration) Unregister() bool {
	if reg.unreg == nil {
		return false
	}
	return reg.unreg()
}

// RegisterObserver registers h to be called on every change of the selected
// device.
func (r *Router) RegisterObserver(h OnDeviceChanged) NotificationRegistration {
	return NotificationRegistration{unreg: r.observers.Register(h)}
}

func (r *Router) notifyDeviceChanged(selected Device, available DeviceSet) {
	r.observers.Visit(func(h OnDeviceChanged) {
		h(selected, append(DeviceSet(nil), available...))
	})
}
