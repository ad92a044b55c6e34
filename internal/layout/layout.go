// Package layout maps classified endpoints to bounded 2-D canvas
// coordinates: three concentric latency rings around a center node, scaled
// to the canvas when there is room and falling back to fixed radii when
// there is not.
package layout

import (
	"math"

	"github.com/user/netgraph/internal/model"
)

// Fixed fallback radii, used on small or degenerate canvases.
const (
	DefaultRingLow    = 25.0
	DefaultRingMedium = 35.0
	DefaultRingHigh   = 45.0
)

// EdgePadding keeps nodes and labels clear of the canvas border.
const EdgePadding = 5.0

// adaptiveMinAvailable is the smallest half-extent worth scaling for;
// below it the fixed radii stay readable.
const adaptiveMinAvailable = 50.0

// Ring radii as fractions of the available half-extent in adaptive mode.
const (
	ratioLow    = 0.30
	ratioMedium = 0.50
	ratioHigh   = 0.70
)

// jitterStep is the bounded radial offset cycled over three indices to
// separate same-bucket neighbors. Always smaller than half the gap
// between adjacent rings, so ring ordering is preserved.
const jitterStep = 2.0

// startAngle places index 0 at twelve o'clock.
const startAngle = -math.Pi / 2

// Config is the per-frame layout, recomputed whenever canvas dimensions
// change and never persisted.
type Config struct {
	Width, Height    float64
	CenterX, CenterY float64
	RingLow          float64
	RingMedium       float64
	RingHigh         float64
	EdgePadding      float64
	Adaptive         bool
}

// Compute derives the layout for a canvas. Non-positive dimensions, or a
// half-extent too small to scale, select the fixed fallback radii; larger
// canvases scale the three rings proportionally so the triple reacts
// monotonically to canvas growth while keeping its ratios constant.
func Compute(width, height float64) Config {
	cfg := Config{
		Width:       width,
		Height:      height,
		CenterX:     width / 2,
		CenterY:     height / 2,
		RingLow:     DefaultRingLow,
		RingMedium:  DefaultRingMedium,
		RingHigh:    DefaultRingHigh,
		EdgePadding: EdgePadding,
	}
	if width <= 0 || height <= 0 {
		cfg.CenterX, cfg.CenterY = 0, 0
		return cfg
	}

	available := math.Min(width, height)/2 - EdgePadding
	if available < adaptiveMinAvailable {
		return cfg
	}

	cfg.RingLow = available * ratioLow
	cfg.RingMedium = available * ratioMedium
	cfg.RingHigh = available * ratioHigh
	cfg.Adaptive = true
	return cfg
}

// RingFor selects the ring radius for a latency bucket. Unknown maps to
// the medium ring as its neutral default.
func (c Config) RingFor(bucket model.LatencyBucket) float64 {
	switch bucket {
	case model.LatencyLow:
		return c.RingLow
	case model.LatencyHigh:
		return c.RingHigh
	default:
		return c.RingMedium
	}
}

// Place computes the coordinates for one endpoint. Endpoints sharing a
// bucket are spread at equal angular spacing around their ring in index
// order, with a small cyclic radial jitter; the result is clamped inside
// the canvas bounds minus padding regardless of jitter or aspect ratio.
func Place(idx, totalInBucket int, bucket model.LatencyBucket, cfg Config) (float64, float64) {
	total := float64(totalInBucket)
	if total < 1 {
		total = 1
	}
	angle := startAngle + (float64(idx)/total)*2*math.Pi

	radius := cfg.RingFor(bucket) + float64(idx%3-1)*jitterStep

	x := cfg.CenterX + radius*math.Cos(angle)
	y := cfg.CenterY + radius*math.Sin(angle)

	return clamp(x, cfg.EdgePadding, cfg.Width-cfg.EdgePadding),
		clamp(y, cfg.EdgePadding, cfg.Height-cfg.EdgePadding)
}

// Apply positions every endpoint of a graph in place, bucketing by latency
// first so same-ring endpoints share an angular distribution.
func Apply(endpoints []model.Endpoint, cfg Config) {
	totals := make(map[model.LatencyBucket]int)
	for i := range endpoints {
		totals[ringBucket(endpoints[i].Latency)]++
	}

	indices := make(map[model.LatencyBucket]int)
	for i := range endpoints {
		bucket := ringBucket(endpoints[i].Latency)
		idx := indices[bucket]
		indices[bucket]++
		endpoints[i].X, endpoints[i].Y = Place(idx, totals[bucket], endpoints[i].Latency, cfg)
	}
}

// ringBucket folds Unknown into Medium for ring occupancy counting,
// matching the neutral placement in RingFor.
func ringBucket(b model.LatencyBucket) model.LatencyBucket {
	if b == model.LatencyUnknown {
		return model.LatencyMedium
	}
	return b
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
