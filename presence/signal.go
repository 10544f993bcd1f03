// Package presence provides the peripheral presence sources consumed by the
// router: a wired headset jack, a Bluetooth headset, or any other peripheral
// class that is either connected or not.
package presence

import (
	"context"
	"sync"

	"github.com/companyzero/audioroute/internal/ntfn"
)

// Registration is returned when subscribing to a source.
type Registration struct {
	unreg func() bool
}

// Unregister removes the subscription. It returns true only the first time it
// removes an active subscription. Unregistering the zero Registration is a
// no-op.
func (reg Registration) Unregister() bool {
	if reg.unreg == nil {
		return false
	}
	return reg.unreg()
}

// Signal is a presence flag with change fan-out. Sources embed it and call Set
// whenever they compute a fresh value.
//
// The new value is stored before any subscriber is called, so a subscriber
// that calls Present from inside the callback reads the value it was notified
// with. Subscribers are called once per transition, in transition order.
type Signal struct {
	mtx     sync.Mutex
	present bool

	// notifyMtx serializes fan-out so that two quick transitions are never
	// delivered out of order.
	notifyMtx sync.Mutex
	handlers  ntfn.Handlers[func(bool)]
}

// Present returns the last stored value.
func (s *Signal) Present() bool {
	s.mtx.Lock()
	v := s.present
	s.mtx.Unlock()
	return v
}

// Subscribe registers f to be called with the new value on every transition.
func (s *Signal) Subscribe(f func(present bool)) Registration {
	return Registration{unreg: s.handlers.Register(f)}
}

// Set stores present and notifies subscribers if it differs from the previous
// value. It returns true if the value changed.
func (s *Signal) Set(present bool) bool {
	s.notifyMtx.Lock()
	defer s.notifyMtx.Unlock()

	s.mtx.Lock()
	changed := s.present != present
	s.present = present
	s.mtx.Unlock()

	if !changed {
		return false
	}
	s.handlers.Visit(func(f func(bool)) { f(present) })
	return true
}

// Static is a source whose presence is only changed by calls to Set. It is
// used for peripheral classes that are not available on this platform and for
// driving the router by hand.
type Static struct {
	Signal
}

// NewStatic returns a static source with the given initial presence.
func NewStatic(present bool) *Static {
	s := &Static{}
	s.present = present
	return s
}

// IsPresent returns the current presence.
func (s *Static) IsPresent() bool { return s.Present() }

// Start is part of the router's presence source interface. Static sources have
// nothing to start.
func (s *Static) Start(ctx context.Context) error { return nil }

// Stop is part of the router's presence source interface.
func (s *Static) Stop() error { return nil }
