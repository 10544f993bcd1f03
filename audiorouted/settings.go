package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/companyzero/audioroute/internal/version"
	"github.com/companyzero/audioroute/router"
	"github.com/companyzero/audioroute/sink"
	"github.com/mitchellh/go-homedir"
	"github.com/vaughan0/go-ini"
	"github.com/xhit/go-str2duration/v2"
)

const maxLogFiles = 16

// Presence source kinds.
const (
	sourceBluez   = "bluez"
	sourceDevices = "devices"
	sourceFile    = "file"
	sourceNone    = "none"
)

// Sink kinds.
const (
	sinkPulse     = "pulse"
	sinkStateFile = "statefile"
	sinkLog       = "log"
)

type sourceSettings struct {
	Source       string
	Path         string   // file source
	Match        []string // devices source
	Exclude      []string // devices source
	PollInterval time.Duration
}

type sinkSettings struct {
	Type      string
	StateFile string
	Pulse     sink.PulseConfig
}

type settings struct {
	ListenPrometheus string // listen addr for metrics
	LockFile         string

	// log section
	LogFile    string // log filename
	DebugLevel string // debug level config string

	// routing section
	Fallback router.Device
	Pin      router.Device

	Bluetooth sourceSettings
	Wired     sourceSettings
	Sink      sinkSettings
}

func defaultSettings(rootDir string) *settings {
	return &settings{
		LockFile:   filepath.Join(rootDir, "audiorouted.lock"),
		LogFile:    filepath.Join(rootDir, "logs", "audiorouted.log"),
		DebugLevel: "info",
		Bluetooth: sourceSettings{
			Source: sourceBluez,
		},
		Wired: sourceSettings{
			Source:       sourceDevices,
			Match:        []string{"headset", "headphone"},
			Exclude:      []string{"bluez", "bluetooth"},
			PollInterval: 3 * time.Second,
		},
		Sink: sinkSettings{
			Type:      sinkStateFile,
			StateFile: filepath.Join(rootDir, "state.json"),
		},
	}
}

func splitList(s string) []string {
	var res []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			res = append(res, v)
		}
	}
	return res
}

// loadSettings loads the config file over the default settings. A missing
// config file is not an error.
func loadSettings(filename, rootDir string) (*settings, error) {
	s := defaultSettings(rootDir)

	cfg, err := ini.LoadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	get := func(s *string, section, field string) bool {
		v, ok := cfg.Get(section, field)
		if ok {
			*s = v
		}
		return ok
	}
	getPath := func(s *string, section, field string) error {
		v, ok := cfg.Get(section, field)
		if !ok {
			return nil
		}
		var err error
		*s, err = homedir.Expand(v)
		if err != nil {
			return fmt.Errorf("invalid [%s] %s: %w", section, field, err)
		}
		return nil
	}
	getDuration := func(d *time.Duration, section, field string) error {
		v, ok := cfg.Get(section, field)
		if !ok {
			return nil
		}
		if v == "" || v == "0" {
			*d = 0
			return nil
		}
		var err error
		*d, err = str2duration.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid [%s] %s: %w", section, field, err)
		}
		return nil
	}
	getDevice := func(d *router.Device, section, field string) error {
		v, ok := cfg.Get(section, field)
		if !ok || v == "" {
			return nil
		}
		var err error
		*d, err = router.ParseDevice(v)
		if err != nil {
			return fmt.Errorf("invalid [%s] %s: %w", section, field, err)
		}
		return nil
	}
	getSource := func(src *sourceSettings, section string) error {
		get(&src.Source, section, "source")
		if err := getPath(&src.Path, section, "path"); err != nil {
			return err
		}
		var match string
		if get(&match, section, "match") {
			src.Match = splitList(match)
		}
		var exclude string
		if get(&exclude, section, "exclude") {
			src.Exclude = splitList(exclude)
		}
		if err := getDuration(&src.PollInterval, section, "pollinterval"); err != nil {
			return err
		}
		switch src.Source {
		case sourceBluez, sourceNone:
		case sourceDevices:
			if len(src.Match) == 0 {
				return fmt.Errorf("[%s] source %s needs a match list", section, src.Source)
			}
		case sourceFile:
			if src.Path == "" {
				return fmt.Errorf("[%s] source %s needs a path", section, src.Source)
			}
		default:
			return fmt.Errorf("unknown [%s] source %q", section, src.Source)
		}
		return nil
	}

	for _, p := range []struct {
		dst            *string
		section, field string
	}{
		{&s.LogFile, "log", "logfile"},
		{&s.LockFile, "", "lockfile"},
		{&s.Sink.StateFile, "sink", "statefile"},
	} {
		if err := getPath(p.dst, p.section, p.field); err != nil {
			return nil, err
		}
	}
	get(&s.DebugLevel, "log", "debuglevel")
	get(&s.ListenPrometheus, "", "listenprometheus")

	if err := getDevice(&s.Fallback, "routing", "fallback"); err != nil {
		return nil, err
	}
	if s.Fallback != "" && s.Fallback != router.Speaker && s.Fallback != router.Earpiece {
		return nil, fmt.Errorf("[routing] fallback must be %s or %s",
			router.Speaker, router.Earpiece)
	}
	if err := getDevice(&s.Pin, "routing", "pin"); err != nil {
		return nil, err
	}

	if err := getSource(&s.Bluetooth, "bluetooth"); err != nil {
		return nil, err
	}
	if err := getSource(&s.Wired, "wired"); err != nil {
		return nil, err
	}

	get(&s.Sink.Type, "sink", "type")
	get(&s.Sink.Pulse.SpeakerSink, "sink", "speakersink")
	get(&s.Sink.Pulse.SpeakerPort, "sink", "speakerport")
	get(&s.Sink.Pulse.EarpieceSink, "sink", "earpiecesink")
	get(&s.Sink.Pulse.EarpiecePort, "sink", "earpieceport")
	get(&s.Sink.Pulse.BluetoothSink, "sink", "bluetoothsink")
	switch s.Sink.Type {
	case sinkPulse, sinkLog:
	case sinkStateFile:
		if s.Sink.StateFile == "" {
			return nil, errors.New("[sink] statefile is empty")
		}
	default:
		return nil, fmt.Errorf("unknown [sink] type %q", s.Sink.Type)
	}

	return s, nil
}

func obtainSettings() (*settings, error) {
	// setup default paths
	usr, err := user.Current()
	if err != nil {
		return nil, err
	}

	// config file
	rootDir := filepath.Join(usr.HomeDir, ".audiorouted")
	filename := flag.String("cfg", filepath.Join(rootDir, "audiorouted.conf"), "config file")
	versionFlag := flag.Bool("version", false, "show version")
	showEnvFlag := flag.Bool("showenv", false, "show environment and config information")
	flag.Parse()

	println := func(format string, args ...interface{}) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
	if *versionFlag || *showEnvFlag {
		println("audiorouted %s (%s)", version.String(), runtime.Version())
	}
	if *versionFlag {
		os.Exit(0)
	}
	if *showEnvFlag {
		println("Username: %s", usr.Username)
		println("Home dir: %s", usr.HomeDir)
		println("Root dir: %s", rootDir)
		println("Config file path: %s", *filename)
	}

	s, err := loadSettings(*filename, rootDir)
	if err != nil {
		return nil, err
	}

	if *showEnvFlag {
		println("Lock file: %s", s.LockFile)
		println("Bluetooth source: %s", s.Bluetooth.Source)
		println("Wired source: %s", s.Wired.Source)
		println("Sink: %s", s.Sink.Type)
		if s.Fallback != "" {
			println("Fallback device: %s", s.Fallback)
		}
		if s.Pin != "" {
			println("Pinned device: %s", s.Pin)
		}
		os.Exit(0)
	}

	return s, nil
}
