package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "option-backtester/internal/errors"
	"option-backtester/internal/models"
)

// Property: capital never goes negative. Any sequence of buys either
// succeeds within capital or is rejected leaving state unchanged.
func TestProperty_CapitalNeverNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	premiumsGen := gen.SliceOfN(20, gen.Float64Range(0.5, 500))
	quantitiesGen := gen.SliceOfN(20, gen.IntRange(1, 50))
	capitalGen := gen.Float64Range(100, 10000)

	properties.Property("capital >= 0 after any buy sequence", prop.ForAll(
		func(premiums []float64, quantities []int, initialCapital float64) bool {
			ledger := NewLedger(initialCapital)

			for i := range premiums {
				before := ledger.Capital()
				openBefore := ledger.OpenCount()

				err := ledger.Buy(100, models.OptionTypeCall, premiums[i], quantities[i], day(0), day(30), 0)

				if ledger.Capital() < 0 {
					t.Logf("FAILED: capital went negative: %v", ledger.Capital())
					return false
				}
				if apperrors.Is(err, apperrors.ErrInsufficientCapital) {
					if ledger.Capital() != before || ledger.OpenCount() != openBefore {
						t.Log("FAILED: rejected buy mutated state")
						return false
					}
				}
			}
			return true
		},
		premiumsGen,
		quantitiesGen,
		capitalGen,
	))

	properties.TestingRun(t)
}

// Property: without decay, capital reconciles exactly. After closing
// every position, final capital = initial capital + sum of trade PnL.
func TestProperty_CapitalConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	premiumsGen := gen.SliceOfN(10, gen.Float64Range(1, 20))
	exitsGen := gen.SliceOfN(10, gen.Float64Range(0, 40))

	properties.Property("initial + realized PnL == final capital", prop.ForAll(
		func(premiums, exits []float64) bool {
			const initialCapital = 100000.0
			ledger := NewLedger(initialCapital)

			for _, premium := range premiums {
				if err := ledger.Buy(100, models.OptionTypePut, premium, 2, day(0), day(30), 0); err != nil {
					t.Logf("FAILED: buy rejected: %v", err)
					return false
				}
			}

			for _, exit := range exits {
				if _, err := ledger.Close(0, exit, day(3), 100); err != nil {
					t.Logf("FAILED: close rejected: %v", err)
					return false
				}
			}

			var realized float64
			for _, trade := range ledger.ClosedTrades() {
				realized += trade.PnL
			}

			if math.Abs(ledger.Capital()-(initialCapital+realized)) > 1e-6 {
				t.Logf("FAILED: capital %v, initial+PnL %v", ledger.Capital(), initialCapital+realized)
				return false
			}
			return true
		},
		premiumsGen,
		exitsGen,
	))

	properties.TestingRun(t)
}

// Property: every position at or past expiry is closed exactly once by
// AdvanceTime, valued at intrinsic, and leaves the open set.
func TestProperty_ExpiryClosureComplete(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	expiryDaysGen := gen.SliceOfN(12, gen.IntRange(0, 20))
	advanceToGen := gen.IntRange(0, 25)
	spotGen := gen.Float64Range(50, 150)

	properties.Property("expired positions close exactly once at intrinsic", prop.ForAll(
		func(expiryDays []int, advanceTo int, spot float64) bool {
			ledger := NewLedger(1e9)

			expiredWant := 0
			for _, d := range expiryDays {
				if err := ledger.Buy(100, models.OptionTypeCall, 5, 1, day(0), day(d), 0); err != nil {
					t.Logf("FAILED: buy rejected: %v", err)
					return false
				}
				if d <= advanceTo {
					expiredWant++
				}
			}

			ledger.AdvanceTime(day(advanceTo), spot, 1)

			trades := ledger.ClosedTrades()
			if len(trades) != expiredWant {
				t.Logf("FAILED: closed %d, want %d", len(trades), expiredWant)
				return false
			}
			if ledger.OpenCount() != len(expiryDays)-expiredWant {
				t.Logf("FAILED: open %d, want %d", ledger.OpenCount(), len(expiryDays)-expiredWant)
				return false
			}

			intrinsic := math.Max(0, spot-100)
			for _, trade := range trades {
				if math.Abs(trade.ExitPremium-intrinsic) > 1e-9 {
					t.Logf("FAILED: exit premium %v, want intrinsic %v", trade.ExitPremium, intrinsic)
					return false
				}
			}
			return true
		},
		expiryDaysGen,
		advanceToGen,
		spotGen,
	))

	properties.TestingRun(t)
}

// Property: wins + losses always partition the trade log, with zero
// PnL counted as a loss.
func TestProperty_WinLossPartition(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	pnlsGen := gen.SliceOf(gen.OneGenOf(
		gen.Float64Range(-100, 100),
		gen.Const(0.0),
	))

	properties.Property("wins + losses == total, zero PnL is a loss", prop.ForAll(
		func(pnls []float64) bool {
			trades := make([]ClosedTrade, len(pnls))
			for i, pnl := range pnls {
				trades[i] = tradeWithPnL(pnl)
			}

			result := computeResult(trades, curve(1000, 1001))

			if result.WinningTrades+result.LosingTrades != result.TotalTrades {
				t.Log("FAILED: partition does not cover trade log")
				return false
			}
			for _, pnl := range pnls {
				if pnl == 0 {
					// At least one break-even: losses must be non-zero.
					if result.LosingTrades == 0 {
						t.Log("FAILED: break-even trade not counted as loss")
						return false
					}
					break
				}
			}
			return true
		},
		pnlsGen,
	))

	properties.TestingRun(t)
}

// Property: max drawdown is always within [0, 1] for non-negative
// equity curves.
func TestProperty_DrawdownBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	equityGen := gen.SliceOf(gen.Float64Range(0, 1e6))

	properties.Property("drawdown in [0, 1]", prop.ForAll(
		func(values []float64) bool {
			points := make([]models.EquityPoint, len(values))
			for i, v := range values {
				points[i] = models.EquityPoint{Timestamp: day(i), Equity: v}
			}

			dd := maxDrawdown(points)
			if dd < 0 || dd > 1 || math.IsNaN(dd) {
				t.Logf("FAILED: drawdown %v out of bounds", dd)
				return false
			}
			return true
		},
		equityGen,
	))

	properties.TestingRun(t)
}
