package procmap

import (
	"testing"

	"github.com/user/netgraph/internal/model"
)

func TestCorrelateWith(t *testing.T) {
	owners := map[uint64]model.ProcessInfo{
		100: {PID: 42, Name: "nginx"},
		200: {PID: 43, Name: "postgres"},
	}

	conns := []model.Connection{
		{Inode: 100},
		{Inode: 200},
		{Inode: 300}, // no owner
		{Inode: 0},   // inode unknown
	}

	correlateWith(conns, owners)

	if conns[0].PID != 42 || conns[0].Process != "nginx" {
		t.Errorf("conn 0 = pid %d %q, want 42 nginx", conns[0].PID, conns[0].Process)
	}
	if conns[1].PID != 43 || conns[1].Process != "postgres" {
		t.Errorf("conn 1 = pid %d %q, want 43 postgres", conns[1].PID, conns[1].Process)
	}
	// Misses keep zero values, never a sentinel.
	if conns[2].PID != 0 || conns[2].Process != "" {
		t.Errorf("conn 2 should stay uncorrelated, got pid %d %q", conns[2].PID, conns[2].Process)
	}
	if conns[3].PID != 0 || conns[3].Process != "" {
		t.Errorf("conn 3 should stay uncorrelated, got pid %d %q", conns[3].PID, conns[3].Process)
	}
}

func TestCorrelateWithIsIdempotent(t *testing.T) {
	owners := map[uint64]model.ProcessInfo{100: {PID: 42, Name: "nginx"}}

	conns := []model.Connection{{Inode: 100}, {Inode: 300}}
	correlateWith(conns, owners)

	first := make([]model.Connection, len(conns))
	copy(first, conns)

	correlateWith(conns, owners)
	for i := range conns {
		if conns[i] != first[i] {
			t.Errorf("conn %d changed on second pass: %+v != %+v", i, conns[i], first[i])
		}
	}
}

func TestCorrelateWithEmptyTable(t *testing.T) {
	conns := []model.Connection{{Inode: 100}}
	correlateWith(conns, nil)
	if conns[0].PID != 0 {
		t.Errorf("expected no correlation with empty table, got pid %d", conns[0].PID)
	}
}

func TestSocketInode(t *testing.T) {
	tests := []struct {
		link  string
		inode uint64
		ok    bool
	}{
		{"socket:[12345]", 12345, true},
		{"socket:[0]", 0, true},
		{"pipe:[999]", 0, false},
		{"/dev/null", 0, false},
		{"socket:[abc]", 0, false},
	}
	for _, tt := range tests {
		inode, ok := socketInode(tt.link)
		if inode != tt.inode || ok != tt.ok {
			t.Errorf("socketInode(%q) = (%d, %v), want (%d, %v)", tt.link, inode, ok, tt.inode, tt.ok)
		}
	}
}

func TestParseStartTicks(t *testing.T) {
	stat := "1234 (my app) S 1 1234 1234 0 -1 4194560 100 0 0 0 10 5 0 0 20 0 4 0 56789 1000000 200 18446744073709551615"
	ticks, ok := parseStartTicks(stat)
	if !ok || ticks != 56789 {
		t.Fatalf("parseStartTicks = (%d, %v), want (56789, true)", ticks, ok)
	}

	if _, ok := parseStartTicks("corrupt line"); ok {
		t.Error("expected parse failure on corrupt stat line")
	}
	if _, ok := parseStartTicks("1 (x) S 1 2 3"); ok {
		t.Error("expected parse failure on truncated stat line")
	}
}
