package arb

import (
	"github.com/shopspring/decimal"

	"polymarket-mm/internal/book"
	"polymarket-mm/pkg/types"
)

// MatchedMarket pairs one contract on each venue believed to settle on
// the same outcome, along with the settlement verdict that licensed the
// pairing.
type MatchedMarket struct {
	VenueATicker string
	VenueBTicker string
	Criteria     types.SettlementCriteria
	Verdict      SettlementVerdict
}

// FeeSchedule computes the fee owed on a leg given its filled size, VWAP,
// and notional. Each venue supplies its own schedule.
type FeeSchedule func(size, vwap, notional decimal.Decimal) decimal.Decimal

// DetectorConfig bounds what the detector will emit.
type DetectorConfig struct {
	MinNetEdge       decimal.Decimal
	MaxPairCost      decimal.Decimal // default 0.96
	ConfiguredMaxSize decimal.Decimal
	MaxPositionValue decimal.Decimal
	PriceCeiling     decimal.Decimal // ceiling within which buy-side depth counts
}

// DefaultMaxPairCost is the spec-mandated default ceiling on pair_cost.
var DefaultMaxPairCost = decimal.NewFromFloat(0.96)

// Opportunity is a single detected cross-venue arbitrage opportunity.
// pair_cost + net_edge + expected_fee always sums to 1.00.
type Opportunity struct {
	Market       MatchedMarket
	Size         decimal.Decimal
	VWAPA        decimal.Decimal
	VWAPB        decimal.Decimal
	PairCost     decimal.Decimal
	ExpectedFee  decimal.Decimal
	NetEdge      decimal.Decimal
}

// Detect walks both venues' books for a matched market and returns an
// opportunity if one clears the configured thresholds. The detector is
// stateless: it never owns positions and may be called repeatedly.
func Detect(market MatchedMarket, bookA, bookB *book.Book, feeA, feeB FeeSchedule, cfg DetectorConfig) (Opportunity, bool) {
	if market.Verdict.Confidence < MinArbitrageConfidence {
		return Opportunity{}, false
	}

	// PriceCeiling is an absolute price, while DepthWithin takes a band
	// measured from the best ask, so the band is the ceiling minus that ask.
	depthA, depthB := decimal.Zero, decimal.Zero
	if ask, ok := bookA.BestAsk(); ok && ask.LessThanOrEqual(cfg.PriceCeiling) {
		depthA = bookA.DepthWithin(types.SideAsk, cfg.PriceCeiling.Sub(ask))
	}
	if ask, ok := bookB.BestAsk(); ok && ask.LessThanOrEqual(cfg.PriceCeiling) {
		depthB = bookB.DepthWithin(types.SideAsk, cfg.PriceCeiling.Sub(ask))
	}

	size := decimal.Min(depthA, decimal.Min(depthB, cfg.ConfiguredMaxSize))
	if !size.IsPositive() {
		return Opportunity{}, false
	}

	fillA := bookA.SimulateFill(types.SideAsk, size)
	fillB := bookB.SimulateFill(types.SideAsk, size)
	if fillA.Partial || fillB.Partial || !fillA.Filled.Equal(size) || !fillB.Filled.Equal(size) {
		// book cannot actually support this size at the moment of detection
		size = decimal.Min(fillA.Filled, fillB.Filled)
		if !size.IsPositive() {
			return Opportunity{}, false
		}
		fillA = bookA.SimulateFill(types.SideAsk, size)
		fillB = bookB.SimulateFill(types.SideAsk, size)
	}

	pairCost := fillA.VWAP.Add(fillB.VWAP)
	notionalA := fillA.VWAP.Mul(size)
	notionalB := fillB.VWAP.Mul(size)
	// fee schedules return a total dollar fee for the leg; pair_cost and
	// net_edge are both expressed per share, so the fee is normalized back
	// to a per-share figure to keep pair_cost + net_edge + expected_fee
	// summing to 1.00 per spec.md §3's invariant.
	feePerShare := feeA(size, fillA.VWAP, notionalA).Add(feeB(size, fillB.VWAP, notionalB)).Div(size)

	netEdge := decimal.NewFromInt(1).Sub(pairCost).Sub(feePerShare)

	maxPairCost := cfg.MaxPairCost
	if maxPairCost.IsZero() {
		maxPairCost = DefaultMaxPairCost
	}

	positionValue := size.Mul(pairCost)
	if netEdge.LessThan(cfg.MinNetEdge) {
		return Opportunity{}, false
	}
	if pairCost.GreaterThan(maxPairCost) {
		return Opportunity{}, false
	}
	if cfg.MaxPositionValue.IsPositive() && positionValue.GreaterThan(cfg.MaxPositionValue) {
		return Opportunity{}, false
	}

	return Opportunity{
		Market:      market,
		Size:        size,
		VWAPA:       fillA.VWAP,
		VWAPB:       fillB.VWAP,
		PairCost:    pairCost,
		ExpectedFee: feePerShare,
		NetEdge:     netEdge,
	}, true
}
