package audio

import (
	"testing"

	"github.com/companyzero/audioroute/internal/assert"
)

// TestMatchName tests matching device names against patterns.
func TestMatchName(t *testing.T) {
	devices := []Device{
		{ID: "1", Name: "Built-in Audio Analog Stereo", IsDefault: true},
		{ID: "2", Name: "bluez_output.AA_BB_CC.1"},
		{ID: "3", Name: "USB Headphones"},
		{ID: "4", Name: "bluez_output.Jabra Headset.1"},
		{ID: "5", Name: "Analog Headset"},
	}

	tests := []struct {
		name     string
		patterns []string
		excludes []string
		wantID   string
		wantOK   bool
	}{{
		name:     "bluez sink",
		patterns: []string{"bluez"},
		wantID:   "2",
		wantOK:   true,
	}, {
		name:     "case insensitive",
		patterns: []string{"HEADPHONES"},
		wantID:   "3",
		wantOK:   true,
	}, {
		name:     "first device wins",
		patterns: []string{"headphones", "analog"},
		wantID:   "1",
		wantOK:   true,
	}, {
		name:     "empty patterns ignored",
		patterns: []string{"", "  "},
	}, {
		name:     "no match",
		patterns: []string{"hdmi"},
	}, {
		name: "nil patterns",
	}, {
		name:     "excluded bluetooth headset",
		patterns: []string{"headset"},
		excludes: []string{"bluez", "bluetooth"},
		wantID:   "5",
		wantOK:   true,
	}, {
		name:     "bluetooth headset without excludes",
		patterns: []string{"headset"},
		wantID:   "4",
		wantOK:   true,
	}, {
		name:     "all excluded",
		patterns: []string{"bluez"},
		excludes: []string{"BLUEZ"},
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dev, ok := MatchName(devices, tc.patterns, tc.excludes)
			assert.BoolIs(t, ok, tc.wantOK)
			assert.DeepEqual(t, dev.ID, tc.wantID)
		})
	}
}
