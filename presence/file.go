package presence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/fsnotify/fsnotify"
)

const (
	// fileDebounce is how long to wait after a file event before reading
	// the file, so that a burst of writes causes a single read.
	fileDebounce = 50 * time.Millisecond

	// fileFallbackPoll is used when the file cannot be watched and no
	// poll interval was configured.
	fileFallbackPoll = 2 * time.Second
)

// FileSource reports presence based on the contents of a file, such as the
// Linux headset switch state (/sys/class/switch/h2w/state) or a file
// maintained by another process.
//
// The file holds an integer (non-zero means present) or a boolean. A missing
// or unparsable file means absent.
type FileSource struct {
	Signal

	path         string
	log          slog.Logger
	pollInterval time.Duration
	loop         loop
}

// FileSourceOption configures a FileSource.
type FileSourceOption func(fs *FileSource)

// WithFileLogger sets the logger of the source.
func WithFileLogger(log slog.Logger) FileSourceOption {
	return func(fs *FileSource) {
		fs.log = log
	}
}

// WithPollInterval makes the source also re-read the file periodically. This
// is needed for pseudo-filesystems that do not generate change events.
func WithPollInterval(d time.Duration) FileSourceOption {
	return func(fs *FileSource) {
		fs.pollInterval = d
	}
}

// NewFileSource creates a source for the given file.
func NewFileSource(path string, opts ...FileSourceOption) *FileSource {
	fs := &FileSource{
		path: filepath.Clean(path),
		log:  slog.Disabled,
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// parsePresence parses the contents of a presence file.
func parsePresence(s string) (bool, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i != 0, nil
	}
	switch s {
	case "connected", "plugged", "on", "yes":
		return true, nil
	case "disconnected", "unplugged", "off", "no":
		return false, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	return false, fmt.Errorf("unrecognized presence value %q", s)
}

// refresh reads the file and updates the signal.
func (fs *FileSource) refresh() {
	var present bool
	data, err := os.ReadFile(fs.path)
	if err == nil {
		present, err = parsePresence(string(data))
	}
	if err != nil && !os.IsNotExist(err) {
		fs.log.Warnf("Unable to read presence from %s: %v", fs.path, err)
	}
	if fs.Set(present) {
		fs.log.Debugf("Presence from %s changed to %v", fs.path, present)
	}
}

// IsPresent returns the presence read from the file the last time it changed.
func (fs *FileSource) IsPresent() bool {
	return fs.Present()
}

func (fs *FileSource) run(ctx context.Context, watcher *fsnotify.Watcher) {
	var events <-chan fsnotify.Event
	var errs <-chan error
	if watcher != nil {
		defer watcher.Close()
		events, errs = watcher.Events, watcher.Errors
	}

	var chanPoll <-chan time.Time
	if fs.pollInterval > 0 {
		ticker := time.NewTicker(fs.pollInterval)
		defer ticker.Stop()
		chanPoll = ticker.C
	}

	var chanReload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case <-chanReload:
			chanReload = nil
			fs.refresh()

		case <-chanPoll:
			fs.refresh()

		case event, ok := <-events:
			if !ok {
				fs.log.Warnf("Watcher events closed for %s", fs.path)
				events = nil
				continue
			}
			if filepath.Clean(event.Name) != fs.path {
				continue
			}
			fs.log.Tracef("Watcher event: %s", event)
			chanReload = time.After(fileDebounce)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fs.log.Debugf("Watcher error: %v", err)
		}
	}
}

// Start reads the file and starts watching it for changes.
func (fs *FileSource) Start(ctx context.Context) error {
	fs.refresh()

	// The parent dir is watched (instead of the file) so that the file
	// may be created, removed or atomically replaced.
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err = watcher.Add(filepath.Dir(fs.path)); err != nil {
			watcher.Close()
			watcher = nil
		}
	} else {
		watcher = nil
	}
	if err != nil {
		fs.log.Warnf("Unable to watch %s: %v", fs.path, err)
		if fs.pollInterval <= 0 {
			fs.pollInterval = fileFallbackPoll
		}
	}

	err = fs.loop.start(ctx, func(ctx context.Context) { fs.run(ctx, watcher) })
	if err != nil && watcher != nil {
		watcher.Close()
	}
	return err
}

// Stop stops watching the file.
func (fs *FileSource) Stop() error {
	fs.loop.stop()
	return nil
}
