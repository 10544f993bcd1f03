// Package ntfn holds the generic handler registry shared by the router's
// observers and the presence signals.
package ntfn

import (
	"sort"
	"sync"
)

// Handlers is a set of registered handlers of type T. The zero value is ready
// for use.
type Handlers[T any] struct {
	mtx      sync.Mutex
	next     uint
	handlers map[uint]T
}

// Register adds h to the set. The returned function removes it. It returns
// true only on the first call, so it is safe to call repeatedly.
func (hn *Handlers[T]) Register(h T) func() bool {
	hn.mtx.Lock()
	id := hn.next
	hn.next++
	if hn.handlers == nil {
		hn.handlers = make(map[uint]T)
	}
	hn.handlers[id] = h
	registered := true
	hn.mtx.Unlock()

	return func() bool {
		hn.mtx.Lock()
		res := registered
		if registered {
			delete(hn.handlers, id)
			registered = false
		}
		hn.mtx.Unlock()
		return res
	}
}

// Visit calls f for every registered handler, in registration order.
//
// Handlers are snapshotted before any of them is called, so f may register or
// unregister handlers without deadlocking. A handler unregistered after the
// snapshot may still be called once.
func (hn *Handlers[T]) Visit(f func(T)) {
	hn.mtx.Lock()
	ids := make([]uint, 0, len(hn.handlers))
	for id := range hn.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	snapshot := make([]T, len(ids))
	for i, id := range ids {
		snapshot[i] = hn.handlers[id]
	}
	hn.mtx.Unlock()

	for _, h := range snapshot {
		f(h)
	}
}

// Len returns the number of registered handlers.
func (hn *Handlers[T]) Len() int {
	hn.mtx.Lock()
	n := len(hn.handlers)
	hn.mtx.Unlock()
	return n
}
