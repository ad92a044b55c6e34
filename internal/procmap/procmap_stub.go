//go:build !linux

package procmap

import "github.com/user/netgraph/internal/model"

// snapshotOwners returns an empty map on platforms without a /proc
// filesystem, leaving every connection uncorrelated.
func snapshotOwners() map[uint64]model.ProcessInfo {
	return nil
}

// Lookup reports only the PID itself on platforms without a /proc
// filesystem.
func Lookup(pid int) model.ProcessInfo {
	return model.ProcessInfo{PID: pid}
}
