package sink

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/companyzero/audioroute/router"
	"github.com/decred/slog"
	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// bluezSinkPrefixes are the name prefixes of the sinks PulseAudio and
// PipeWire create for Bluetooth devices.
var bluezSinkPrefixes = []string{"bluez_sink.", "bluez_output."}

var errNoBluetoothSink = errors.New("no bluetooth sink available")

// PulseConfig names the sinks (and optionally the ports of those sinks) that
// correspond to each output device.
type PulseConfig struct {
	// SpeakerSink defaults to the default sink at creation time.
	SpeakerSink string
	SpeakerPort string

	// EarpieceSink defaults to SpeakerSink.
	EarpieceSink string
	EarpiecePort string

	// BluetoothSink defaults to the first Bluetooth sink found when SCO
	// is started.
	BluetoothSink string
}

// pulseRequester is the subset of *pulse.Client used by the sink.
type pulseRequester interface {
	RawRequest(req proto.RequestArgs, rpl proto.Reply) error
	Close()
}

// PulseSink routes audio by switching the default sink (and sink port) of a
// PulseAudio compatible server. The session mode has no server equivalent and
// is only recorded.
type PulseSink struct {
	cfg    PulseConfig
	log    slog.Logger
	client pulseRequester

	mtx   sync.Mutex
	state State
}

// NewPulseSink connects to the PulseAudio server.
func NewPulseSink(cfg PulseConfig, log slog.Logger) (*PulseSink, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("audiorouted"),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to pulse server: %w", err)
	}
	s, err := newPulseSink(client, cfg, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func newPulseSink(client pulseRequester, cfg PulseConfig, log slog.Logger) (*PulseSink, error) {
	if log == nil {
		log = slog.Disabled
	}

	var server proto.GetServerInfoReply
	if err := client.RawRequest(&proto.GetServerInfo{}, &server); err != nil {
		return nil, fmt.Errorf("unable to query pulse server: %w", err)
	}
	if cfg.SpeakerSink == "" {
		cfg.SpeakerSink = server.DefaultSinkName
	}
	if cfg.EarpieceSink == "" {
		cfg.EarpieceSink = cfg.SpeakerSink
	}
	if cfg.SpeakerSink == "" {
		return nil, errors.New("no speaker sink configured and no default sink")
	}

	s := &PulseSink{
		cfg:    cfg,
		log:    log,
		client: client,
	}

	sinks, err := s.listSinks()
	if err != nil {
		return nil, err
	}
	s.state.Speakerphone = s.speakerActive(server.DefaultSinkName, sinks)
	s.state.Updated = time.Now()
	log.Debugf("Pulse sinks: speaker %s:%s, earpiece %s:%s, default %s "+
		"(speakerphone %v)", cfg.SpeakerSink, cfg.SpeakerPort,
		cfg.EarpieceSink, cfg.EarpiecePort, server.DefaultSinkName,
		s.state.Speakerphone)
	return s, nil
}

func (s *PulseSink) listSinks() (proto.GetSinkInfoListReply, error) {
	var sinks proto.GetSinkInfoListReply
	if err := s.client.RawRequest(&proto.GetSinkInfoList{}, &sinks); err != nil {
		return nil, fmt.Errorf("unable to list pulse sinks: %w", err)
	}
	return sinks, nil
}

// speakerActive returns true if the speaker sink (and port) is the current
// output.
func (s *PulseSink) speakerActive(defaultSink string, sinks proto.GetSinkInfoListReply) bool {
	if defaultSink != s.cfg.SpeakerSink {
		return false
	}
	if s.cfg.SpeakerPort == "" {
		return true
	}
	for _, sink := range sinks {
		if sink != nil && sink.SinkName == defaultSink {
			return sink.ActivePortName == s.cfg.SpeakerPort
		}
	}
	return false
}

// bluetoothSink returns the name of the sink used for Bluetooth audio.
func (s *PulseSink) bluetoothSink() (string, error) {
	if s.cfg.BluetoothSink != "" {
		return s.cfg.BluetoothSink, nil
	}
	sinks, err := s.listSinks()
	if err != nil {
		return "", err
	}
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		for _, prefix := range bluezSinkPrefixes {
			if strings.HasPrefix(sink.SinkName, prefix) {
				return sink.SinkName, nil
			}
		}
	}
	return "", errNoBluetoothSink
}

// route switches the server to the output of st.
//
// Must be called with mtx held.
func (s *PulseSink) route(st State) error {
	var name, port string
	switch st.Device() {
	case router.Bluetooth:
		var err error
		if name, err = s.bluetoothSink(); err != nil {
			return err
		}
	case router.Speaker:
		name, port = s.cfg.SpeakerSink, s.cfg.SpeakerPort
	default:
		name, port = s.cfg.EarpieceSink, s.cfg.EarpiecePort
	}

	if port != "" {
		req := &proto.SetSinkPort{
			SinkIndex: proto.Undefined,
			SinkName:  name,
			Port:      port,
		}
		if err := s.client.RawRequest(req, nil); err != nil {
			return fmt.Errorf("unable to set port %s of sink %s: %w",
				port, name, err)
		}
	}
	if err := s.client.RawRequest(&proto.SetDefaultSink{SinkName: name}, nil); err != nil {
		return fmt.Errorf("unable to set default sink %s: %w", name, err)
	}
	s.log.Debugf("Default sink set to %s (port %q)", name, port)
	return nil
}

// update applies f to the state and, if the output changed, routes audio to
// the new output. The state is only changed when routing succeeds.
func (s *PulseSink) update(f func(st *State)) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	st := s.state
	f(&st)
	if st.Device() != s.state.Device() {
		if err := s.route(st); err != nil {
			return err
		}
	}
	st.Updated = time.Now()
	s.state = st
	return nil
}

// State returns the last applied state.
func (s *PulseSink) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state
}

func (s *PulseSink) SetMode(m router.Mode) error {
	s.log.Debugf("Audio mode set to %s", m)
	return s.update(func(st *State) { st.Mode = m })
}

func (s *PulseSink) SetSpeakerphone(on bool) error {
	return s.update(func(st *State) { st.Speakerphone = on })
}

func (s *PulseSink) IsSpeakerphoneOn() bool {
	return s.State().Speakerphone
}

func (s *PulseSink) SetBluetoothSco(on bool) error {
	return s.update(func(st *State) { st.BluetoothSco = on })
}

// Close disconnects from the server.
func (s *PulseSink) Close() {
	s.client.Close()
}
