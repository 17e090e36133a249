// Package pricing provides heuristic option valuation helpers.
//
// None of these functions implement a real options pricing model. Theta
// decay and time value are deliberate approximations chosen so that a
// backtest can mark positions to market without market quotes for every
// contract. Callers that need Black-Scholes-grade numbers should supply
// their own Valuer.
package pricing

import (
	"math"

	"option-backtester/internal/models"
)

// IntrinsicValue returns the in-the-money value of an option at the
// given spot. CALL: max(0, spot-strike); PUT: max(0, strike-spot).
func IntrinsicValue(spot, strike float64, typ models.OptionType) float64 {
	if typ == models.OptionTypeCall {
		return math.Max(0, spot-strike)
	}
	return math.Max(0, strike-spot)
}

// ThetaDecay returns the premium erosion per day. When the contract has
// expired (daysToExpiry <= 0) the whole premium decays. Otherwise the
// decay rate is iv*premium/(days+1), which grows as expiry approaches;
// the +1 keeps the zero-days case finite even though true expiry is
// routed through the <=0 branch.
func ThetaDecay(daysToExpiry int, premium, iv float64) float64 {
	if daysToExpiry <= 0 {
		return premium
	}
	return iv * premium / (float64(daysToExpiry) + 1)
}

// TimeValue returns a rough decaying time-value proxy for an unexpired
// contract: max(0, premium * 0.1 * days/30).
func TimeValue(premium float64, daysToExpiry int) float64 {
	return math.Max(0, premium*0.1*float64(daysToExpiry)/30)
}

// Valuer marks a single open position to market. Implementations must
// be side-effect-free.
type Valuer interface {
	PositionValue(spot, strike float64, typ models.OptionType, premium float64, quantity, daysToExpiry int) float64
}

// HeuristicValuer is the default Valuer: intrinsic value at or past
// expiry, intrinsic plus the TimeValue proxy before it.
type HeuristicValuer struct{}

// PositionValue implements Valuer.
func (HeuristicValuer) PositionValue(spot, strike float64, typ models.OptionType, premium float64, quantity, daysToExpiry int) float64 {
	intrinsic := IntrinsicValue(spot, strike, typ)
	if daysToExpiry <= 0 {
		return intrinsic * float64(quantity)
	}
	return (intrinsic + TimeValue(premium, daysToExpiry)) * float64(quantity)
}
