package sink

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/companyzero/audioroute/internal/jsonfile"
	"github.com/companyzero/audioroute/router"
	"github.com/decred/slog"
)

// StateFileSink persists the commanded state as a json document so that
// another process (a modem manager, a session script) can apply it.
//
// The file is replaced atomically on every command. A command whose write
// fails leaves both the file and the in-memory state unchanged.
type StateFileSink struct {
	fname string
	log   slog.Logger
	now   func() time.Time

	mtx   sync.Mutex
	state State
}

// NewStateFileSink creates a sink writing to fname. The state stored by a
// previous run is restored and any partial write it left behind is removed.
// Without a previous state, the speakerphone starts on.
func NewStateFileSink(fname string, log slog.Logger) (*StateFileSink, error) {
	if log == nil {
		log = slog.Disabled
	}
	s := &StateFileSink{
		fname: fname,
		log:   log,
		now:   time.Now,
		state: State{Speakerphone: true},
	}

	if err := jsonfile.RemoveIfExists(jsonfile.TempName(fname)); err != nil {
		log.Warnf("Unable to remove stale audio state temp file: %v", err)
	}

	st, err := jsonfile.Read[State](fname)
	switch {
	case errors.Is(err, jsonfile.ErrNotFound):
		log.Debugf("No previous audio state in %s", fname)
	case err != nil:
		return nil, fmt.Errorf("unable to load audio state: %w", err)
	default:
		log.Infof("Restored audio state (%s) from %s", st, fname)
		s.state = st
	}
	return s, nil
}

// Path returns the path of the state file.
func (s *StateFileSink) Path() string {
	return s.fname
}

// State returns the last persisted state.
func (s *StateFileSink) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state
}

func (s *StateFileSink) update(f func(st *State)) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	st := s.state
	f(&st)
	st.Updated = s.now().UTC()
	if err := jsonfile.Write(s.fname, st, s.log); err != nil {
		return fmt.Errorf("unable to write audio state: %w", err)
	}
	s.state = st
	s.log.Debugf("Stored audio state: %s", st)
	return nil
}

func (s *StateFileSink) SetMode(m router.Mode) error {
	return s.update(func(st *State) { st.Mode = m })
}

func (s *StateFileSink) SetSpeakerphone(on bool) error {
	return s.update(func(st *State) { st.Speakerphone = on })
}

func (s *StateFileSink) IsSpeakerphoneOn() bool {
	return s.State().Speakerphone
}

func (s *StateFileSink) SetBluetoothSco(on bool) error {
	return s.update(func(st *State) { st.BluetoothSco = on })
}
