package arb

import (
	"testing"
)

func TestEstimateUsesStaticFallbackBelowMinObservations(t *testing.T) {
	t.Parallel()
	tr := NewCorrelationTracker(CorrelationConfig{
		WindowSize: 50, MinObservations: 10, StaticFallback: 0.3, ZScore: 1.96,
	})
	key := PairKey{AssetA: "BTC", AssetB: "ETH"}

	tr.Observe(key, true)
	tr.Observe(key, true)

	got := tr.Estimate(key)
	if got != 0.3 {
		t.Errorf("Estimate() = %v, want static fallback 0.3", got)
	}
}

func TestEstimateUsesWilsonLowerBoundAboveMinObservations(t *testing.T) {
	t.Parallel()
	tr := NewCorrelationTracker(CorrelationConfig{
		WindowSize: 50, MinObservations: 5, StaticFallback: 0.3, ZScore: 1.96,
	})
	key := PairKey{AssetA: "BTC", AssetB: "ETH"}

	for i := 0; i < 20; i++ {
		tr.Observe(key, true)
	}

	got := tr.Estimate(key)
	// all-success Wilson lower bound should be high but strictly < 1.0
	if got <= 0.5 || got >= 1.0 {
		t.Errorf("Estimate() = %v, want in (0.5, 1.0) for 20/20 successes", got)
	}
}

func TestObserveTrimsToWindowSize(t *testing.T) {
	t.Parallel()
	tr := NewCorrelationTracker(CorrelationConfig{WindowSize: 3, MinObservations: 1, ZScore: 1.96})
	key := PairKey{AssetA: "A", AssetB: "B"}

	tr.Observe(key, false)
	tr.Observe(key, false)
	tr.Observe(key, false)
	tr.Observe(key, true)
	tr.Observe(key, true)
	tr.Observe(key, true)

	got := tr.Estimate(key)
	// window should now hold only the three `true` observations
	if got <= 0.5 {
		t.Errorf("Estimate() = %v, want high correlation after trimming stale `false` observations", got)
	}
}

func TestWilsonLowerBoundMonotonicInSuccesses(t *testing.T) {
	t.Parallel()
	low := wilsonLowerBound(5, 20, 1.96)
	high := wilsonLowerBound(18, 20, 1.96)
	if !(low < high) {
		t.Errorf("wilsonLowerBound(5,20)=%v should be less than wilsonLowerBound(18,20)=%v", low, high)
	}
}
