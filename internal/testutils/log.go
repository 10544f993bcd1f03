// Package testutils holds helpers shared by tests across the module.
package testutils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/decred/slog"
)

// TestLogBackend is a slog backend suitable for using with tests. Lines are
// forwarded to t.Log until the test ends.
type TestLogBackend struct {
	mtx  sync.Mutex
	tb   testing.TB
	w    io.Writer
	done bool
}

func (tlb *TestLogBackend) Write(b []byte) (int, error) {
	tlb.mtx.Lock()
	if !tlb.done && len(b) > 0 {
		tlb.tb.Log(string(b[:len(b)-1]))
	}
	tlb.mtx.Unlock()

	if tlb.w != nil {
		tlb.w.Write(b)
	}
	return len(b), nil
}

type TestLogBackendOption func(t *TestLogBackend)

// WithMiddlewareWriter also writes every log line to w.
func WithMiddlewareWriter(w io.Writer) TestLogBackendOption {
	return func(t *TestLogBackend) {
		t.w = w
	}
}

// NewTestLogBackend returns a log backend that can be used as an io.Writer to
// write logs to during a test.
func NewTestLogBackend(t testing.TB, opts ...TestLogBackendOption) *TestLogBackend {
	tlb := &TestLogBackend{tb: t}
	for _, opt := range opts {
		opt(tlb)
	}
	t.Cleanup(func() {
		tlb.mtx.Lock()
		tlb.done = true
		tlb.mtx.Unlock()
	})
	return tlb
}

// testLogLevel is the level of test loggers. It may be changed with the
// AUDIOROUTE_TEST_LOGLEVEL env var.
func testLogLevel() slog.Level {
	if s := os.Getenv("AUDIOROUTE_TEST_LOGLEVEL"); s != "" {
		if lvl, ok := slog.LevelFromString(s); ok {
			return lvl
		}
	}
	return slog.LevelTrace
}

// TestLoggerSys returns an slog.Logger that logs by issuing t.Log calls.
func TestLoggerSys(t testing.TB, sys string) slog.Logger {
	bknd := slog.NewBackend(NewTestLogBackend(t))
	logg := bknd.Logger(sys)
	logg.SetLevel(testLogLevel())
	return logg
}

// TestLoggerBackend returns a function that generates loggers for subsystems,
// all of which log by calling t.Log.
func TestLoggerBackend(t testing.TB, name string) func(subsys string) slog.Logger {
	bknd := slog.NewBackend(NewTestLogBackend(t))
	return func(subsys string) slog.Logger {
		logg := bknd.Logger(fmt.Sprintf("%7s - %s", name, subsys))
		logg.SetLevel(testLogLevel())
		return logg
	}
}
