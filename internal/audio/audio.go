//go:build cgo && !noaudio

package audio

import (
	"github.com/decred/slog"
	"github.com/gen2brain/malgo"
)

// ListPlaybackDevices lists the playback devices known to the audio backend.
func ListPlaybackDevices(log slog.Logger) ([]Device, error) {
	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}()

	devices, err := malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return nil, err
	}

	res := make([]Device, 0, len(devices))
	seen := make(map[string]struct{}, len(devices))
	for _, dev := range devices {
		full, err := malgoCtx.DeviceInfo(malgo.Playback, dev.ID, malgo.Shared)
		if err != nil {
			log.Warnf("Unable to get audio device info: %v", err)
			continue
		}

		// Some backends report the same device more than once.
		id := string(append([]byte(nil), full.ID[:]...))
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		res = append(res, Device{
			ID:        id,
			Name:      full.Name(),
			IsDefault: full.IsDefault == 1,
		})
	}

	return res, nil
}
