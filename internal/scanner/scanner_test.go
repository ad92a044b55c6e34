package scanner

import (
	"strings"
	"testing"

	"github.com/user/netgraph/internal/model"
)

const tcpTable = `  sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode
   0: 0100007F:1F90 00000000:0000 0A 00000000:00000000 00:00000000 00000000  1000        0 12345 1 0000000000000000 100 0 0 10 0
   1: 0A00000A:A1B2 08080808:01BB 01 00000000:00000000 00:00000000 00000000  1000        0 67890 1 0000000000000000 20 4 30 10 -1
   2: garbage
`

func TestParseTableTCP(t *testing.T) {
	conns := parseTable(strings.NewReader(tcpTable), model.ProtoTCP, false)
	if len(conns) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(conns))
	}

	c := conns[0]
	if c.LocalAddr != "127.0.0.1" || c.LocalPort != 8080 {
		t.Errorf("local = %s:%d, want 127.0.0.1:8080", c.LocalAddr, c.LocalPort)
	}
	if c.State != model.StateListen {
		t.Errorf("state = %v, want LISTEN", c.State)
	}
	if c.Inode != 12345 {
		t.Errorf("inode = %d, want 12345", c.Inode)
	}

	c = conns[1]
	if c.LocalAddr != "10.0.0.10" {
		t.Errorf("local addr = %s, want 10.0.0.10", c.LocalAddr)
	}
	if c.RemoteAddr != "8.8.8.8" || c.RemotePort != 443 {
		t.Errorf("remote = %s:%d, want 8.8.8.8:443", c.RemoteAddr, c.RemotePort)
	}
	if c.State != model.StateEstablished {
		t.Errorf("state = %v, want ESTABLISHED", c.State)
	}
}

func TestParseTableSkipsMalformed(t *testing.T) {
	table := "header\n   0: notanaddr 00000000:0000 0A x x x x x 1\n"
	conns := parseTable(strings.NewReader(table), model.ProtoTCP, false)
	if len(conns) != 0 {
		t.Fatalf("expected malformed line to be skipped, got %d conns", len(conns))
	}
}

func TestParseTableUDPHasNoState(t *testing.T) {
	table := `  sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode
 100: 0100007F:0035 00000000:0000 07 00000000:00000000 00:00000000 00000000   102        0 2222 2 0000000000000000 0
`
	conns := parseTable(strings.NewReader(table), model.ProtoUDP, false)
	if len(conns) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(conns))
	}
	if conns[0].State != model.StateUnknown {
		t.Errorf("udp state = %v, want UNKNOWN", conns[0].State)
	}
	if conns[0].Proto != model.ProtoUDP {
		t.Errorf("proto = %v, want udp", conns[0].Proto)
	}
}

func TestParseHexAddr(t *testing.T) {
	tests := []struct {
		in   string
		v6   bool
		addr string
		port uint16
		ok   bool
	}{
		{"0100007F:1F90", false, "127.0.0.1", 8080, true},
		{"00000000:0000", false, "0.0.0.0", 0, true},
		{"08080808:01BB", false, "8.8.8.8", 443, true},
		{"00000000000000000000000001000000:0050", true, "::1", 80, true},
		{"0100007F", false, "", 0, false},
		{"ZZZZ:0050", false, "", 0, false},
		{"0100007F:GGGG", false, "", 0, false},
	}

	for _, tt := range tests {
		addr, port, ok := parseHexAddr(tt.in, tt.v6)
		if ok != tt.ok || addr != tt.addr || port != tt.port {
			t.Errorf("parseHexAddr(%q, v6=%v) = (%q, %d, %v), want (%q, %d, %v)",
				tt.in, tt.v6, addr, port, ok, tt.addr, tt.port, tt.ok)
		}
	}
}

func TestParseHexState(t *testing.T) {
	if s := model.ParseHexState("01"); s != model.StateEstablished {
		t.Errorf("01 = %v, want ESTABLISHED", s)
	}
	if s := model.ParseHexState("0A"); s != model.StateListen {
		t.Errorf("0A = %v, want LISTEN", s)
	}
	if s := model.ParseHexState("0B"); s != model.StateClosing {
		t.Errorf("0B = %v, want CLOSING", s)
	}
	if s := model.ParseHexState("FF"); s != model.StateUnknown {
		t.Errorf("FF = %v, want UNKNOWN", s)
	}
}
