package arb

import (
	"math"
	"sync"
)

// PairKey identifies a related-asset pair for correlation tracking.
type PairKey struct {
	AssetA, AssetB string
}

// CorrelationConfig bounds the sliding window and supplies the fallback
// used when too few observations have accumulated. The fallback is
// configured per spec.md §4.Q, never hard-coded at the call site.
type CorrelationConfig struct {
	WindowSize      int
	MinObservations int
	StaticFallback  float64
	ZScore          float64 // e.g. 1.96 for a 95% confidence bound
}

// CorrelationTracker maintains a bounded sliding window of binary
// "moved together" observations per asset pair and exposes the Wilson-
// score lower bound as a conservative correlation estimate.
type CorrelationTracker struct {
	mu      sync.Mutex
	cfg     CorrelationConfig
	windows map[PairKey][]bool
}

// NewCorrelationTracker creates a tracker using cfg.
func NewCorrelationTracker(cfg CorrelationConfig) *CorrelationTracker {
	return &CorrelationTracker{
		cfg:     cfg,
		windows: make(map[PairKey][]bool),
	}
}

// Observe records whether the two assets moved together at the latest
// tick, trimming the window to cfg.WindowSize.
func (c *CorrelationTracker) Observe(key PairKey, movedTogether bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := append(c.windows[key], movedTogether)
	if len(w) > c.cfg.WindowSize {
		w = w[len(w)-c.cfg.WindowSize:]
	}
	c.windows[key] = w
}

// Estimate returns the current conservative correlation estimate for
// key: the Wilson-score lower bound if the window holds at least
// MinObservations, else the configured static fallback.
func (c *CorrelationTracker) Estimate(key PairKey) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.windows[key]
	if len(w) < c.cfg.MinObservations {
		return c.cfg.StaticFallback
	}

	successes := 0
	for _, moved := range w {
		if moved {
			successes++
		}
	}
	return wilsonLowerBound(successes, len(w), c.cfg.ZScore)
}

// wilsonLowerBound computes the lower bound of the Wilson score interval
// for successes out of n trials at the given z-score.
func wilsonLowerBound(successes, n int, z float64) float64 {
	if n == 0 {
		return 0
	}
	p := float64(successes) / float64(n)
	nf := float64(n)
	z2 := z * z

	denom := 1 + z2/nf
	center := p + z2/(2*nf)
	margin := z * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf))

	return (center - margin) / denom
}
