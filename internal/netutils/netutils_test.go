package netutils

import (
	"context"
	"testing"

	"github.com/companyzero/audioroute/internal/assert"
)

func TestNetworksFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr    string
		want    []string
		wantErr bool
	}{
		{addr: ":9911", want: []string{"tcp4", "tcp6"}},
		{addr: "127.0.0.1:9911", want: []string{"tcp4"}},
		{addr: "[::1]:9911", want: []string{"tcp6"}},
		{addr: "[fe80::1%eth0]:9911", want: []string{"tcp6"}},
		{addr: "localhost:9911", want: []string{"tcp"}},
		{addr: "metrics.example:9911", wantErr: true},
		{addr: "9911", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.addr, func(t *testing.T) {
			got, err := networksFor(tc.addr)
			if tc.wantErr {
				assert.NonNilErr(t, err)
				return
			}
			assert.NilErr(t, err)
			assert.DeepEqual(t, got, tc.want)
		})
	}
}

func TestListen(t *testing.T) {
	ls, err := Listen(context.Background(), "127.0.0.1:0")
	assert.NilErr(t, err)
	assert.DeepEqual(t, len(ls), 1)
	assert.NilErr(t, ls[0].Close())
}
