// Package scanner reads the kernel socket tables and emits raw connection
// records. It is strictly read-only and never returns an error: tables that
// cannot be read (missing procfs, insufficient privilege) yield an empty
// result, which callers must treat as "insufficient visibility" rather than
// "no connections".
package scanner

import (
	"bufio"
	"encoding/hex"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/user/netgraph/internal/model"
)

// parseTable parses one line-oriented socket table. The first line is a
// header and skipped; a malformed entry is skipped and parsing continues.
func parseTable(r io.Reader, proto model.Protocol, v6 bool) []model.Connection {
	var conns []model.Connection

	sc := bufio.NewScanner(r)
	sc.Scan() // header

	for sc.Scan() {
		if conn, ok := parseLine(sc.Text(), proto, v6); ok {
			conns = append(conns, conn)
		}
	}
	return conns
}

// parseLine parses a single socket table entry. Field layout:
//
//	sl local_address rem_address st tx_queue:rx_queue tr:tm->when retrnsmt uid timeout inode
func parseLine(line string, proto model.Protocol, v6 bool) (model.Connection, bool) {
	fields := strings.Fields(line)
	if len(fields) < 10 {
		return model.Connection{}, false
	}

	localAddr, localPort, ok := parseHexAddr(fields[1], v6)
	if !ok {
		return model.Connection{}, false
	}
	remoteAddr, remotePort, ok := parseHexAddr(fields[2], v6)
	if !ok {
		return model.Connection{}, false
	}

	state := model.StateUnknown
	if proto == model.ProtoTCP {
		state = model.ParseHexState(strings.ToUpper(fields[3]))
	}

	// Inode is used only for process correlation; a bad value is not
	// grounds for dropping the record.
	inode, _ := strconv.ParseUint(fields[9], 10, 64)

	return model.Connection{
		Proto:      proto,
		LocalAddr:  localAddr,
		LocalPort:  localPort,
		RemoteAddr: remoteAddr,
		RemotePort: remotePort,
		State:      state,
		Inode:      inode,
	}, true
}

// parseHexAddr decodes the HEXIP:HEXPORT encoding used by /proc/net/tcp.
// IPv4 addresses are stored little-endian; IPv6 addresses are stored as
// four little-endian 32-bit groups.
func parseHexAddr(s string, v6 bool) (string, uint16, bool) {
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return "", 0, false
	}

	port, err := strconv.ParseUint(s[idx+1:], 16, 16)
	if err != nil {
		return "", 0, false
	}

	b, err := hex.DecodeString(s[:idx])
	if err != nil {
		return "", 0, false
	}

	if v6 {
		if len(b) != 16 {
			return "", 0, false
		}
		ip := make(net.IP, 16)
		for i := 0; i < 4; i++ {
			ip[i*4+0] = b[i*4+3]
			ip[i*4+1] = b[i*4+2]
			ip[i*4+2] = b[i*4+1]
			ip[i*4+3] = b[i*4+0]
		}
		return ip.String(), uint16(port), true
	}

	if len(b) != 4 {
		return "", 0, false
	}
	ip := net.IPv4(b[3], b[2], b[1], b[0])
	return ip.String(), uint16(port), true
}
