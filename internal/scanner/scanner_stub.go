//go:build !linux

package scanner

import "github.com/user/netgraph/internal/model"

// Scan has no kernel socket table to read on this platform and returns nil.
// Callers render with zero connections.
func Scan() []model.Connection {
	return nil
}
