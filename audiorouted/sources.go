package main

import (
	"fmt"

	"github.com/companyzero/audioroute/internal/logutil"
	"github.com/companyzero/audioroute/presence"
	"github.com/companyzero/audioroute/router"
	"github.com/companyzero/audioroute/sink"
	"github.com/decred/slog"
)

// newPresenceSource creates the presence source configured for a peripheral
// class.
func newPresenceSource(class router.PeripheralClass, cfg sourceSettings, log slog.Logger) (router.PresenceSource, error) {
	log = logutil.PrefixLogger(log, string(class))
	switch cfg.Source {
	case sourceBluez:
		return presence.NewBluezSource(log), nil
	case sourceDevices:
		return presence.NewDeviceListSource(cfg.Match,
			presence.WithDeviceListLogger(log),
			presence.WithDeviceExcludes(cfg.Exclude),
			presence.WithDevicePollInterval(cfg.PollInterval)), nil
	case sourceFile:
		return presence.NewFileSource(cfg.Path,
			presence.WithFileLogger(log),
			presence.WithPollInterval(cfg.PollInterval)), nil
	case sourceNone:
		return presence.NewStatic(false), nil
	default:
		return nil, fmt.Errorf("unknown presence source %q", cfg.Source)
	}
}

// newSink creates the configured command sink. The returned func releases its
// resources.
func newSink(cfg sinkSettings, log slog.Logger) (router.CommandSink, func(), error) {
	switch cfg.Type {
	case sinkPulse:
		s, err := sink.NewPulseSink(cfg.Pulse, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case sinkStateFile:
		s, err := sink.NewStateFileSink(cfg.StateFile, log)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case sinkLog:
		return sink.NewLogSink(log, true), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}
