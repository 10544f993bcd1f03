package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/companyzero/audioroute/internal/assert"
	"github.com/companyzero/audioroute/internal/jsonfile"
	"github.com/companyzero/audioroute/internal/testutils"
	"github.com/companyzero/audioroute/router"
)

// TestStateFileSinkRestore asserts the state written by one sink is restored
// by the next one.
func TestStateFileSinkRestore(t *testing.T) {
	t.Parallel()

	dir := testutils.TempTestDir(t, "statefile")
	fname := filepath.Join(dir, "state.json")
	log := testutils.TestLoggerSys(t, "SINK")

	s, err := NewStateFileSink(fname, log)
	assert.NilErr(t, err)
	assert.BoolIs(t, s.IsSpeakerphoneOn(), true)

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	assert.NilErr(t, s.SetMode(router.ModeCommunication))
	assert.NilErr(t, s.SetSpeakerphone(false))
	assert.NilErr(t, s.SetBluetoothSco(true))

	data, err := os.ReadFile(fname)
	assert.NilErr(t, err)
	if !strings.Contains(string(data), `"mode": "communication"`) {
		t.Fatalf("unexpected state file contents: %s", data)
	}

	s2, err := NewStateFileSink(fname, log)
	assert.NilErr(t, err)
	want := State{
		Mode:         router.ModeCommunication,
		BluetoothSco: true,
		Updated:      now,
	}
	assert.DeepEqual(t, s2.State(), want)
	assert.BoolIs(t, s2.IsSpeakerphoneOn(), false)
}

// TestStateFileSinkCorrupt asserts a corrupt state file is reported.
func TestStateFileSinkCorrupt(t *testing.T) {
	t.Parallel()

	dir := testutils.TempTestDir(t, "statefile")
	fname := testutils.WriteFile(t, dir, "state.json", `{"mode": "party"}`)
	_, err := NewStateFileSink(fname, nil)
	assert.NonNilErr(t, err)
}

// TestStateFileSinkWriteError asserts a failed write does not change the
// state.
func TestStateFileSinkWriteError(t *testing.T) {
	t.Parallel()

	dir := testutils.TempTestDir(t, "statefile")
	s, err := NewStateFileSink(filepath.Join(dir, "sub", "state.json"), nil)
	assert.NilErr(t, err)

	// A regular file where the state dir should be.
	testutils.WriteFile(t, dir, "sub", "")

	assert.NonNilErr(t, s.SetSpeakerphone(false))
	assert.BoolIs(t, s.IsSpeakerphoneOn(), true)
}

// TestStateFileSinkRemovesPartialWrite asserts the temp file of an
// interrupted write is removed and the last complete state is restored.
func TestStateFileSinkRemovesPartialWrite(t *testing.T) {
	t.Parallel()

	dir := testutils.TempTestDir(t, "statefile")
	fname := testutils.WriteFile(t, dir, "state.json",
		`{"mode": "communication", "speakerphone": false}`)
	tmp := jsonfile.TempName(fname)
	testutils.WriteFile(t, dir, filepath.Base(tmp), `{"mode": "norm`)

	s, err := NewStateFileSink(fname, testutils.TestLoggerSys(t, "SINK"))
	assert.NilErr(t, err)
	assert.DeepEqual(t, s.State().Mode, router.ModeCommunication)
	assert.BoolIs(t, s.IsSpeakerphoneOn(), false)

	_, err = os.Stat(tmp)
	if !os.IsNotExist(err) {
		t.Fatalf("temp file not removed: %v", err)
	}
}
