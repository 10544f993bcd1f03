// Package lockfile provides an exclusive lock on a file, used to ensure a
// single daemon instance drives the audio routing of a host.
package lockfile

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rogpeppe/go-internal/lockedfile"
)

// Holder describes the process holding a lock file.
type Holder struct {
	PID     int
	Host    string
	Process string
}

func (h Holder) String() string {
	return fmt.Sprintf("%s (pid %d on %s)", h.Process, h.PID, h.Host)
}

// LockFile holds the lock.
type LockFile struct {
	f    *lockedfile.File
	path string
}

// Path returns the path of the lock file.
func (lf *LockFile) Path() string {
	return lf.path
}

// Close releases the lock.
func (lf *LockFile) Close() error {
	if lf.f == nil {
		return fmt.Errorf("nil internal locked file")
	}
	return lf.f.Close()
}

func currentHolder() Holder {
	host, _ := os.Hostname()
	var proc string
	if len(os.Args) > 0 {
		proc = filepath.Base(os.Args[0])
	}
	return Holder{PID: os.Getpid(), Host: host, Process: proc}
}

// Create acquires the lock on filePath, blocking until it is released by any
// other holder or ctx is done.
func Create(ctx context.Context, filePath string) (*LockFile, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return nil, err
	}

	type result struct {
		f   *lockedfile.File
		err error
	}
	c := make(chan result, 1)
	go func() {
		f, err := lockedfile.Create(filePath)
		c <- result{f, err}
	}()

	select {
	case res := <-c:
		if res.err != nil {
			return nil, res.err
		}

		// Informational only. Errors are not fatal.
		h := currentHolder()
		fmt.Fprintf(res.f, "PID=%d\nHost=%q\nProcess=%q\n", h.PID, h.Host, h.Process)
		return &LockFile{f: res.f, path: filePath}, nil

	case <-ctx.Done():
		// The file may still be locked later on. Release it if so.
		go func() {
			if res := <-c; res.f != nil {
				res.f.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// ReadHolder returns the holder information written to filePath by the last
// process that acquired the lock.
func ReadHolder(filePath string) (Holder, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return Holder{}, err
	}
	defer f.Close()

	var h Holder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "PID":
			h.PID, err = strconv.Atoi(value)
		case "Host":
			h.Host, err = strconv.Unquote(value)
		case "Process":
			h.Process, err = strconv.Unquote(value)
		}
		if err != nil {
			return Holder{}, fmt.Errorf("invalid %s in lock file: %w", key, err)
		}
	}
	return h, scanner.Err()
}
