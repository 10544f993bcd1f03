package presence

import (
	"context"
	"errors"
	"sync"
)

var errAlreadyStarted = errors.New("presence source already started")

// loop manages the goroutine of a source that watches or polls the
// platform.
type loop struct {
	mtx    sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// start runs f in a new goroutine until ctx is done or stop is called.
func (l *loop) start(ctx context.Context, f func(ctx context.Context)) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.cancel != nil {
		return errAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f(ctx)
	}()
	l.cancel = cancel
	l.done = done
	return nil
}

// stop cancels the goroutine and waits for it to return. Stopping a loop
// that is not running does nothing.
func (l *loop) stop() {
	l.mtx.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mtx.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
