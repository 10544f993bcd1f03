package router

import (
	"context"
	"fmt"

	"github.com/companyzero/audioroute/presence"
)

// PresenceSource reports whether a peripheral class is connected.
//
// IsPresent must not block for longer than a bounded platform call and reports
// false when the platform cannot answer. Subscribers are called once per
// transition, after the new value is readable through IsPresent.
type PresenceSource interface {
	IsPresent() bool
	Subscribe(f func(present bool)) presence.Registration
	Start(ctx context.Context) error
	Stop() error
}

// Mode is the audio session mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeCommunication
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeCommunication:
		return "communication"
	default:
		return "unknown"
	}
}

// ParseMode parses the string representation of a mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "normal":
		return ModeNormal, nil
	case "communication":
		return ModeCommunication, nil
	default:
		return 0, fmt.Errorf("unknown audio mode %q", s)
	}
}

// MarshalText encodes the mode as its string representation.
func (m Mode) MarshalText() ([]byte, error) {
	if m != ModeNormal && m != ModeCommunication {
		return nil, fmt.Errorf("unknown audio mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode encoded with MarshalText.
func (m *Mode) UnmarshalText(b []byte) error {
	mode, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// CommandSink applies routing decisions to the platform audio session.
type CommandSink interface {
	SetMode(m Mode) error
	SetSpeakerphone(on bool) error
	IsSpeakerphoneOn() bool
	SetBluetoothSco(on bool) error
}
