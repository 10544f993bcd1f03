// Package netutils holds helpers for binding the daemon listeners.
package netutils

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// networksFor returns the tcp networks to bind for addr. An empty host binds
// both IPv4 and IPv6.
func networksFor(addr string) ([]string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("%q is not a normalized listener address", addr)
	}
	if host == "" {
		return []string{"tcp4", "tcp6"}, nil
	}
	if host == "localhost" {
		return []string{"tcp"}, nil
	}

	// The zone prevents ParseIP from parsing the address. Hostnames are
	// not resolved.
	if i := strings.Index(host, "%"); i != -1 {
		host = host[:i]
	}
	ip := net.ParseIP(host)
	switch {
	case ip == nil:
		return nil, fmt.Errorf("%q is not a valid IP address", host)
	case ip.To4() == nil:
		return []string{"tcp6"}, nil
	default:
		return []string{"tcp4"}, nil
	}
}

// Listen binds to addr. Listeners already bound are closed if a later one
// fails.
func Listen(ctx context.Context, addr string) ([]net.Listener, error) {
	networks, err := networksFor(addr)
	if err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	listeners := make([]net.Listener, 0, len(networks))
	for _, network := range networks {
		l, err := lc.Listen(ctx, network, addr)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return nil, fmt.Errorf("unable to listen on %s:%s: %w", network, addr, err)
		}
		listeners = append(listeners, l)
	}
	return listeners, nil
}
