// Package jsonfile reads and atomically replaces small json documents on
// disk.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/slog"
)

var ErrNotFound = errors.New("json file not found")

// TempName is the name of the file written before being renamed to fname.
// It only exists after a write was interrupted.
func TempName(fname string) string {
	return filepath.Join(filepath.Dir(fname), "."+filepath.Base(fname)+".new")
}

// Write encodes v into a temp file next to fname, syncs it and renames it over
// fname, so readers never observe a partially written document.
//
// log is used to log cleanup failures that are not fatal to the write.
func Write(fname string, v any, log slog.Logger) error {
	if log == nil {
		log = slog.Disabled
	}
	dir := filepath.Dir(fname)
	tmp := TempName(fname)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("unable to create dest dir: %w", err)
	}

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err = enc.Encode(v); err != nil {
		err = fmt.Errorf("unable to encode json contents: %w", err)
	} else if err = f.Sync(); err != nil {
		err = fmt.Errorf("unable to fsync temp file: %w", err)
	}

	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("unable to close temp file: %w", closeErr)
	}
	if err == nil {
		if err = os.Rename(tmp, fname); err != nil {
			err = fmt.Errorf("unable to rename temp file: %w", err)
		}
	}
	if err != nil {
		if remErr := os.Remove(tmp); remErr != nil && !os.IsNotExist(remErr) {
			log.Warnf("Unable to remove temp file %s: %v", tmp, remErr)
		}
	}
	return err
}

// Read decodes the json document stored in fname. It returns ErrNotFound if
// the file does not exist.
func Read[T any](fname string) (T, error) {
	var v T
	f, err := os.Open(fname)
	if os.IsNotExist(err) {
		return v, ErrNotFound
	} else if err != nil {
		return v, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&v); err != nil {
		return v, fmt.Errorf("unable to decode %s: %w", fname, err)
	}
	return v, nil
}

// RemoveIfExists removes fname. It does not fail if the file does not exist.
func RemoveIfExists(fname string) error {
	err := os.Remove(fname)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
