// Package arb implements cross-venue arbitrage: settlement verification
// between two binary-outcome contract descriptors, opportunity detection
// by walking both venues' books, simultaneous dual-leg execution with
// unwind-on-partial-fill, post-settlement reconciliation, and a Wilson-
// score correlation tracker consumed by correlated-outcome pricing.
//
// The original arbitrage-cross crate's detector.rs/executor.rs/fees.rs/
// reconciler.rs bodies were filtered from the retrieval pack (doc
// comments and imports only survived), so these algorithms are built
// directly against spec.md's literal descriptions; only the overall
// Kalshi-vs-Polymarket cross-venue pairing and the "verify before
// execute" safety ordering are confirmed by the crate's surviving doc
// comments and import lists.
package arb

import (
	"time"

	"polymarket-mm/pkg/types"
)

// MatchResult classifies how closely two contract descriptors line up.
type MatchResult string

const (
	Match     MatchResult = "MATCH"
	NearMatch MatchResult = "NEAR_MATCH"
	NoMatch   MatchResult = "NO_MATCH"
)

// SettlementVerdict is the outcome of comparing two settlement criteria,
// with a confidence score and, for a near match, the reason the two
// contracts are not bit-for-bit identical.
type SettlementVerdict struct {
	Result     MatchResult
	Confidence float64
	Reason     string
}

// MinArbitrageConfidence is the threshold below which arbitrage execution
// must refuse to proceed (spec §4.H).
const MinArbitrageConfidence = 0.99

// nearMatchResolutionWindow is the maximum resolution-time skew tolerated
// for a near match. spec.md §4.H states a "≤5 minutes" window in prose
// but its own worked scenario (S6: a 10-minute drift still yields
// NearMatch at confidence ≈0.92) requires a wider tolerance; the
// concrete scenario is taken as authoritative over the rounded prose
// figure, and the window is widened to 12.5 minutes — the point at
// which confidenceForSkew reaches the 0.90 floor.
const nearMatchResolutionWindow = 12*time.Minute + 30*time.Second

// confidenceDecayPerMinute is the per-minute confidence penalty applied
// to resolution-time skew, calibrated so a 10-minute drift (spec.md's S6
// scenario) lands at confidence 0.92.
const confidenceDecayPerMinute = 0.008

// VerifySettlement compares two binary contracts' settlement criteria and
// returns a verdict with confidence. An exact match on all five fields is
// confidence 1.0; a near match requires identical underlying and
// threshold, semantically equivalent comparisons, and resolution times
// within nearMatchResolutionWindow (12.5 minutes).
func VerifySettlement(a, b types.SettlementCriteria) SettlementVerdict {
	if exactMatch(a, b) {
		return SettlementVerdict{Result: Match, Confidence: 1.0}
	}

	if a.Underlying != b.Underlying || !a.Threshold.Equal(b.Threshold) {
		return SettlementVerdict{Result: NoMatch, Confidence: 0.0, Reason: "underlying or threshold differ"}
	}

	if !comparisonsEquivalent(a.Comparison, b.Comparison) {
		return SettlementVerdict{Result: NoMatch, Confidence: 0.0, Reason: "comparisons are not semantically equivalent"}
	}

	skew := a.ResolutionTime.Sub(b.ResolutionTime)
	if skew < 0 {
		skew = -skew
	}
	if skew > nearMatchResolutionWindow {
		return SettlementVerdict{
			Result:     NoMatch,
			Confidence: 0.0,
			Reason:     "resolution times differ by more than the near-match window",
		}
	}

	skewMinutes := skew.Minutes()
	confidence := 1.0 - confidenceDecayPerMinute*skewMinutes
	if confidence >= 1.0 {
		confidence = 0.999
	}
	if confidence < 0.9 {
		confidence = 0.9
	}

	return SettlementVerdict{
		Result:     NearMatch,
		Confidence: confidence,
		Reason:     "resolution times differ within the near-match window",
	}
}

func exactMatch(a, b types.SettlementCriteria) bool {
	return a.Underlying == b.Underlying &&
		a.Threshold.Equal(b.Threshold) &&
		a.Comparison == b.Comparison &&
		a.ResolutionTime.Equal(b.ResolutionTime) &&
		a.PriceSource == b.PriceSource
}

// comparisonsEquivalent treats Above and AtOrAbove as semantically the
// same family (a one-tick boundary difference), distinct from Below.
func comparisonsEquivalent(a, b types.Comparison) bool {
	if a == b {
		return true
	}
	aboveFamily := func(c types.Comparison) bool { return c == types.CompAbove || c == types.CompAtOrAbove }
	return aboveFamily(a) && aboveFamily(b)
}
