package testutils

import (
	"os"
	"path/filepath"
	"testing"
)

// TempTestDir returns a temp dir for a test that only gets cleaned up if the
// test does not fail.
func TempTestDir(t testing.TB, prefix string) string {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if !t.Failed() {
			err := os.RemoveAll(dir)
			if err != nil {
				t.Logf("Unable to remove temp dir %s: %v", dir, err)
			}
		} else {
			t.Logf("Test data dir: %s", dir)
		}
	})

	return dir
}

// WriteFile writes data to name inside dir, failing the test on errors. It
// returns the full path of the file.
func WriteFile(t testing.TB, dir, name, data string) string {
	t.Helper()
	fname := filepath.Join(dir, name)
	if err := os.WriteFile(fname, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return fname
}
