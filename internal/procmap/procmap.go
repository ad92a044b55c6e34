// Package procmap correlates socket inodes with owning processes by
// walking per-process file descriptor tables. All reads are best-effort:
// a process that exits mid-scan or denies access is skipped, and the
// correlation pass itself never fails.
package procmap

import (
	"strconv"
	"strings"

	"github.com/user/netgraph/internal/model"
)

// Correlate fills in PID and process name for every connection whose socket
// inode appears in the current process table. Connections with no match are
// left untouched; their zero-valued PID and empty name are the miss signal.
//
// Calling Correlate again against an unchanged process table is idempotent.
func Correlate(conns []model.Connection) {
	correlateWith(conns, snapshotOwners())
}

// correlateWith is the table-injected core of Correlate, split out so the
// matching logic is testable without a live /proc.
func correlateWith(conns []model.Connection, owners map[uint64]model.ProcessInfo) {
	if len(owners) == 0 {
		return
	}
	for i := range conns {
		if conns[i].Inode == 0 {
			continue
		}
		if owner, ok := owners[conns[i].Inode]; ok {
			conns[i].PID = owner.PID
			conns[i].Process = owner.Name
		}
	}
}

// socketInode extracts the inode from a "socket:[12345]" fd link target.
func socketInode(link string) (uint64, bool) {
	if !strings.HasPrefix(link, "socket:[") || !strings.HasSuffix(link, "]") {
		return 0, false
	}
	inode, err := strconv.ParseUint(link[8:len(link)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return inode, true
}

// parseStartTicks pulls the starttime field (clock ticks since boot) out of
// a /proc/<pid>/stat line. The comm field may contain spaces, so fields are
// located after the closing paren.
func parseStartTicks(stat string) (int64, bool) {
	idx := strings.LastIndexByte(stat, ')')
	if idx < 0 {
		return 0, false
	}
	fields := strings.Fields(stat[idx+1:])
	// starttime is the 22nd stat field, index 19 after state.
	if len(fields) < 20 {
		return 0, false
	}
	ticks, err := strconv.ParseInt(fields[19], 10, 64)
	if err != nil {
		return 0, false
	}
	return ticks, true
}
