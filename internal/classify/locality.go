// Package classify labels connections and endpoints: network locality,
// latency buckets for ring placement, and rule-driven suspicion tags.
package classify

import (
	"net"

	"github.com/user/netgraph/internal/model"
)

// Locality classifies the remote side of a connection.
//
// Precedence: loopback, then listen-only (no remote peer present), then
// private ranges, then public. A listening socket's wildcard remote
// (0.0.0.0:0 or [::]:0) is "no peer", not a loopback address, so the
// loopback check only applies to real loopback remotes.
func Locality(c model.Connection) model.Locality {
	if isLoopback(c.RemoteAddr) {
		return model.LocalityLoopback
	}
	if c.Listening() {
		return model.LocalityListenOnly
	}
	if c.RemoteAddr == "0.0.0.0" || c.RemoteAddr == "::" {
		return model.LocalityLoopback
	}
	if isPrivate(c.RemoteAddr) {
		return model.LocalityPrivate
	}
	return model.LocalityPublic
}

// LocalityOfAddr classifies a bare remote address, for callers grouping
// endpoints rather than inspecting single connections.
func LocalityOfAddr(addr string, listenOnly bool) model.Locality {
	if listenOnly {
		return model.LocalityListenOnly
	}
	if isLoopback(addr) || addr == "0.0.0.0" || addr == "::" {
		return model.LocalityLoopback
	}
	if isPrivate(addr) {
		return model.LocalityPrivate
	}
	return model.LocalityPublic
}

func isLoopback(addr string) bool {
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}

var privateNets = mustCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"fc00::/7", // IPv6 unique-local
)

func isPrivate(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range privateNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func mustCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}
