//go:build linux

package scanner

import (
	"os"

	"github.com/user/netgraph/internal/model"
)

var sources = []struct {
	path  string
	proto model.Protocol
	v6    bool
}{
	{"/proc/net/tcp", model.ProtoTCP, false},
	{"/proc/net/tcp6", model.ProtoTCP, true},
	{"/proc/net/udp", model.ProtoUDP, false},
	{"/proc/net/udp6", model.ProtoUDP, true},
}

// Scan reads the TCP and UDP socket tables for both address families and
// returns the current connection set. A table that cannot be opened is
// skipped; Scan never fails.
func Scan() []model.Connection {
	var conns []model.Connection
	for _, src := range sources {
		f, err := os.Open(src.path)
		if err != nil {
			continue
		}
		conns = append(conns, parseTable(f, src.proto, src.v6)...)
		f.Close()
	}
	return conns
}
