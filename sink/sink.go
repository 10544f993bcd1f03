// Package sink provides the command sinks that apply routing decisions to the
// host audio system.
package sink

import (
	"fmt"
	"time"

	"github.com/companyzero/audioroute/router"
)

// State is the audio session state commanded by the router.
type State struct {
	Mode         router.Mode `json:"mode"`
	Speakerphone bool        `json:"speakerphone"`
	BluetoothSco bool        `json:"bluetooth_sco"`
	Updated      time.Time   `json:"updated"`
}

// Device returns the output the state routes audio to. A wired headset is
// routed by the platform when the speakerphone is off, so it is reported as
// the earpiece.
func (s State) Device() router.Device {
	switch {
	case s.BluetoothSco:
		return router.Bluetooth
	case s.Speakerphone:
		return router.Speaker
	default:
		return router.Earpiece
	}
}

func (s State) String() string {
	return fmt.Sprintf("mode=%s speakerphone=%v sco=%v", s.Mode,
		s.Speakerphone, s.BluetoothSco)
}

var (
	_ router.CommandSink = (*LogSink)(nil)
	_ router.CommandSink = (*StateFileSink)(nil)
	_ router.CommandSink = (*PulseSink)(nil)
)
