package presence

import (
	"context"
	"time"

	"github.com/companyzero/audioroute/internal/audio"
	"github.com/decred/slog"
)

const defaultDevicePollInterval = 3 * time.Second

// DeviceListSource reports presence by periodically listing the playback
// devices of the host audio system and matching their names against a set of
// case-insensitive substrings (for example "headphone" or "headset").
type DeviceListSource struct {
	Signal

	patterns []string
	excludes []string
	interval time.Duration
	log      slog.Logger
	loop     loop

	// list is replaced in tests.
	list func(log slog.Logger) ([]audio.Device, error)
}

// DeviceListOption configures a DeviceListSource.
type DeviceListOption func(s *DeviceListSource)

// WithDeviceListLogger sets the logger of the source.
func WithDeviceListLogger(log slog.Logger) DeviceListOption {
	return func(s *DeviceListSource) {
		s.log = log
	}
}

// WithDeviceExcludes ignores devices whose name contains any of the given
// case-insensitive substrings, even if they match a pattern.
func WithDeviceExcludes(excludes []string) DeviceListOption {
	return func(s *DeviceListSource) {
		s.excludes = excludes
	}
}

// WithDevicePollInterval sets how often the device list is queried.
func WithDevicePollInterval(d time.Duration) DeviceListOption {
	return func(s *DeviceListSource) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewDeviceListSource creates a source that reports present while any
// playback device matches one of the patterns.
func NewDeviceListSource(patterns []string, opts ...DeviceListOption) *DeviceListSource {
	s := &DeviceListSource{
		patterns: patterns,
		interval: defaultDevicePollInterval,
		log:      slog.Disabled,
		list:     audio.ListPlaybackDevices,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DeviceListSource) refresh() {
	devices, err := s.list(s.log)
	if err != nil {
		s.log.Debugf("Unable to list playback devices: %v", err)
		s.Set(false)
		return
	}

	dev, present := audio.MatchName(devices, s.patterns, s.excludes)
	if s.Set(present) {
		if present {
			s.log.Debugf("Found matching playback device %q", dev.Name)
		} else {
			s.log.Debugf("No playback device matches %q", s.patterns)
		}
	}
}

// IsPresent returns the result of the last device list query.
func (s *DeviceListSource) IsPresent() bool {
	return s.Present()
}

func (s *DeviceListSource) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh()
		}
	}
}

// Start queries the device list and starts polling it.
func (s *DeviceListSource) Start(ctx context.Context) error {
	s.refresh()
	return s.loop.start(ctx, s.run)
}

// Stop stops polling the device list.
func (s *DeviceListSource) Stop() error {
	s.loop.stop()
	return nil
}
