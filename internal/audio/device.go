// Package audio queries the platform audio backend for the available output
// devices.
package audio

import (
	"errors"
	"strings"
)

// ErrAudioDisabled is returned by the device queries in builds without audio
// support (no cgo or the noaudio tag).
var ErrAudioDisabled = errors.New("audio was disabled during compilation")

// Device is a playback device reported by the audio backend.
type Device struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

func containsAny(name string, patterns []string) bool {
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// MatchName returns the first device whose name contains any of the patterns
// and none of the excludes, compared case-insensitively. Empty patterns are
// ignored.
func MatchName(devices []Device, patterns, excludes []string) (Device, bool) {
	for _, dev := range devices {
		name := strings.ToLower(dev.Name)
		if containsAny(name, patterns) && !containsAny(name, excludes) {
			return dev, true
		}
	}
	return Device{}, false
}
