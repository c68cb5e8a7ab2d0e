// File: bootstrap/resolver.go
// Package bootstrap provides the default address resolver.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bootstrap

import (
	"fmt"
	"net"

	"github.com/momentics/hioload-net/api"
)

// UnresolvedAddr names an endpoint still in symbolic form, e.g.
// {"tcp", "example.com:6379"}.
type UnresolvedAddr struct {
	Net  string
	Host string
}

func (u UnresolvedAddr) Network() string { return u.Net }
func (u UnresolvedAddr) String() string  { return u.Host }

// defaultResolver treats any address already in final form as resolved
// and performs a TCP/UDP lookup for symbolic ones.
type defaultResolver struct{}

var _ api.Resolver = defaultResolver{}

// DefaultResolver returns the built-in resolver.
func DefaultResolver() api.Resolver { return defaultResolver{} }

func (defaultResolver) IsResolved(addr net.Addr) bool {
	switch a := addr.(type) {
	case UnresolvedAddr:
		return false
	case *net.TCPAddr:
		return a.IP != nil
	case *net.UDPAddr:
		return a.IP != nil
	default:
		return true
	}
}

func (defaultResolver) Resolve(addr net.Addr) (net.Addr, error) {
	u, ok := addr.(UnresolvedAddr)
	if !ok {
		return addr, nil
	}
	switch u.Net {
	case "udp", "udp4", "udp6":
		return net.ResolveUDPAddr(u.Net, u.Host)
	case "", "tcp", "tcp4", "tcp6":
		network := u.Net
		if network == "" {
			network = "tcp"
		}
		return net.ResolveTCPAddr(network, u.Host)
	default:
		return nil, fmt.Errorf("bootstrap: cannot resolve %q addresses", u.Net)
	}
}
