package sink

import (
	"sync"
	"time"

	"github.com/companyzero/audioroute/router"
	"github.com/decred/slog"
)

// LogSink only logs the commands it receives. It is used to run the router
// without touching the audio system.
type LogSink struct {
	log slog.Logger

	mtx   sync.Mutex
	state State
}

// NewLogSink creates a log sink with the given initial speakerphone state.
func NewLogSink(log slog.Logger, speakerphone bool) *LogSink {
	if log == nil {
		log = slog.Disabled
	}
	return &LogSink{
		log:   log,
		state: State{Speakerphone: speakerphone, Updated: time.Now()},
	}
}

func (s *LogSink) update(f func(st *State)) {
	s.mtx.Lock()
	f(&s.state)
	s.state.Updated = time.Now()
	st := s.state
	s.mtx.Unlock()
	s.log.Infof("Audio state: %s", st)
}

// State returns the last commanded state.
func (s *LogSink) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state
}

func (s *LogSink) SetMode(m router.Mode) error {
	s.update(func(st *State) { st.Mode = m })
	return nil
}

func (s *LogSink) SetSpeakerphone(on bool) error {
	s.update(func(st *State) { st.Speakerphone = on })
	return nil
}

func (s *LogSink) IsSpeakerphoneOn() bool {
	return s.State().Speakerphone
}

func (s *LogSink) SetBluetoothSco(on bool) error {
	s.update(func(st *State) { st.BluetoothSco = on })
	return nil
}
