//go:build linux

package procmap

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/user/netgraph/internal/model"
)

// snapshotOwners builds a one-shot map of socket inode to owning process
// by resolving every readable /proc/<pid>/fd entry. Processes that cannot
// be enumerated (permission denied, exited mid-scan) are skipped.
func snapshotOwners() map[uint64]model.ProcessInfo {
	owners := make(map[uint64]model.ProcessInfo)

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return owners
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		fdDir := "/proc/" + entry.Name() + "/fd"
		fds, err := os.ReadDir(fdDir)
		if err != nil {
			continue
		}

		var info *model.ProcessInfo
		for _, fd := range fds {
			link, err := os.Readlink(fdDir + "/" + fd.Name())
			if err != nil {
				continue
			}
			inode, ok := socketInode(link)
			if !ok {
				continue
			}
			if info == nil {
				name := processName(pid)
				info = &model.ProcessInfo{PID: pid, Name: name, AgeSec: processAge(pid)}
			}
			owners[inode] = *info
		}
	}
	return owners
}

// Lookup resolves a single process by PID. Used for the focused-process
// header; correlation uses the bulk snapshot instead.
func Lookup(pid int) model.ProcessInfo {
	return model.ProcessInfo{PID: pid, Name: processName(pid), AgeSec: processAge(pid)}
}

// processName reads the short command name from /proc/<pid>/comm.
// Returns empty when the process is unreadable; emptiness is the miss
// signal for callers, never a sentinel string.
func processName(pid int) string {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/comm")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// processAge derives how long the process has been alive from the
// starttime field of /proc/<pid>/stat (clock ticks since boot) and the
// system uptime. Returns 0 when either read fails.
func processAge(pid int) int64 {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return 0
	}
	ticks, ok := parseStartTicks(string(b))
	if !ok {
		return 0
	}

	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return 0
	}
	age := si.Uptime - ticks/userHZ
	if age < 0 {
		return 0
	}
	return age
}

// userHZ is the kernel clock tick rate used in /proc/<pid>/stat.
// Fixed at 100 on every supported linux architecture.
const userHZ = 100
