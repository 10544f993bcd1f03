//go:build !cgo || noaudio

package audio

import "github.com/decred/slog"

// ListPlaybackDevices always fails in builds without audio support.
func ListPlaybackDevices(log slog.Logger) ([]Device, error) {
	return nil, ErrAudioDisabled
}
