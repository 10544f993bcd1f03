package sink

import (
	"errors"
	"fmt"
	"testing"

	"github.com/companyzero/audioroute/internal/assert"
	"github.com/companyzero/audioroute/internal/testutils"
	"github.com/companyzero/audioroute/router"
	"github.com/jfreymuth/pulse/proto"
)

// testPulse fakes the pulse server requests used by the sink.
type testPulse struct {
	defaultSink string
	sinks       proto.GetSinkInfoListReply
	failSet     bool

	// calls records the state changing requests.
	calls  []string
	closed bool
}

func (p *testPulse) addSink(name, activePort string) {
	p.sinks = append(p.sinks, &proto.GetSinkInfoReply{
		SinkIndex:      uint32(len(p.sinks)),
		SinkName:       name,
		ActivePortName: activePort,
	})
}

func (p *testPulse) RawRequest(req proto.RequestArgs, rpl proto.Reply) error {
	switch req := req.(type) {
	case *proto.GetServerInfo:
		rpl.(*proto.GetServerInfoReply).DefaultSinkName = p.defaultSink
	case *proto.GetSinkInfoList:
		*rpl.(*proto.GetSinkInfoListReply) = p.sinks
	case *proto.SetDefaultSink:
		if p.failSet {
			return errors.New("failed")
		}
		p.defaultSink = req.SinkName
		p.calls = append(p.calls, "default "+req.SinkName)
	case *proto.SetSinkPort:
		p.calls = append(p.calls, fmt.Sprintf("port %s %s", req.SinkName, req.Port))
	default:
		return fmt.Errorf("unexpected request %T", req)
	}
	return nil
}

func (p *testPulse) Close() {
	p.closed = true
}

func (p *testPulse) takeCalls() []string {
	calls := p.calls
	p.calls = nil
	return calls
}

// TestPulseSinkPorts asserts speaker and earpiece are routed through the ports
// of a single sink.
func TestPulseSinkPorts(t *testing.T) {
	t.Parallel()

	const builtin = "alsa_output.platform-sound.HiFi"
	p := &testPulse{defaultSink: builtin}
	p.addSink(builtin, "[Out] Speaker")

	cfg := PulseConfig{
		SpeakerPort:  "[Out] Speaker",
		EarpiecePort: "[Out] Earpiece",
	}
	s, err := newPulseSink(p, cfg, testutils.TestLoggerSys(t, "SINK"))
	assert.NilErr(t, err)
	assert.BoolIs(t, s.IsSpeakerphoneOn(), true)

	// Mode changes and repeated speakerphone commands do not route.
	assert.NilErr(t, s.SetMode(router.ModeCommunication))
	assert.NilErr(t, s.SetSpeakerphone(true))
	assert.DeepEqual(t, len(p.takeCalls()), 0)

	assert.NilErr(t, s.SetSpeakerphone(false))
	assert.DeepEqual(t, p.takeCalls(), []string{
		"port " + builtin + " [Out] Earpiece",
		"default " + builtin,
	})
	assert.BoolIs(t, s.IsSpeakerphoneOn(), false)

	s.Close()
	assert.BoolIs(t, p.closed, true)
}

// TestPulseSinkBluetooth asserts the Bluetooth sink is discovered when SCO
// starts.
func TestPulseSinkBluetooth(t *testing.T) {
	t.Parallel()

	const (
		speaker = "alsa_output.pci-0000_00_1f.3.analog-stereo"
		headset = "bluez_output.00_11_22_33_44_55.1"
	)
	p := &testPulse{defaultSink: speaker}
	p.addSink(speaker, "")

	s, err := newPulseSink(p, PulseConfig{}, nil)
	assert.NilErr(t, err)

	// No bluetooth sink yet.
	assert.ErrorIs(t, s.SetBluetoothSco(true), errNoBluetoothSink)
	assert.DeepEqual(t, s.State().Device(), router.Speaker)

	p.addSink(headset, "")
	assert.NilErr(t, s.SetBluetoothSco(true))
	assert.NilErr(t, s.SetSpeakerphone(false))
	assert.DeepEqual(t, p.takeCalls(), []string{"default " + headset})

	assert.NilErr(t, s.SetBluetoothSco(false))
	assert.DeepEqual(t, p.takeCalls(), []string{"default " + speaker})
	assert.DeepEqual(t, s.State().Device(), router.Earpiece)
}

// TestPulseSinkFailure asserts a failed route leaves the state unchanged.
func TestPulseSinkFailure(t *testing.T) {
	t.Parallel()

	p := &testPulse{defaultSink: "speaker"}
	p.addSink("speaker", "")
	p.addSink("earpiece", "")
	s, err := newPulseSink(p, PulseConfig{EarpieceSink: "earpiece"}, nil)
	assert.NilErr(t, err)

	p.failSet = true
	assert.NonNilErr(t, s.SetSpeakerphone(false))
	assert.BoolIs(t, s.IsSpeakerphoneOn(), true)

	p.failSet = false
	assert.NilErr(t, s.SetSpeakerphone(false))
	assert.DeepEqual(t, p.takeCalls(), []string{"default earpiece"})
}

func TestPulseSinkNoDefault(t *testing.T) {
	t.Parallel()

	_, err := newPulseSink(&testPulse{}, PulseConfig{}, nil)
	assert.NonNilErr(t, err)
}
