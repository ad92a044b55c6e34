package classify

import "github.com/user/netgraph/internal/model"

// LatencyConfig holds the thresholds separating the latency rings.
type LatencyConfig struct {
	LowMS  uint64
	HighMS uint64
}

// DefaultLatencyConfig returns the stock 50ms/200ms ring thresholds.
func DefaultLatencyConfig() LatencyConfig {
	return LatencyConfig{LowMS: 50, HighMS: 200}
}

// Latency buckets a round-trip sample. An absent sample (ok == false) is
// Unknown and must never be treated as High or Low; placement maps it to
// a neutral default ring.
func Latency(sampleMS uint64, ok bool, cfg LatencyConfig) model.LatencyBucket {
	if !ok {
		return model.LatencyUnknown
	}
	switch {
	case sampleMS < cfg.LowMS:
		return model.LatencyLow
	case sampleMS <= cfg.HighMS:
		return model.LatencyMedium
	default:
		return model.LatencyHigh
	}
}
