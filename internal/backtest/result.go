package backtest

import (
	"math"

	"option-backtester/internal/models"
)

// Result is the summary produced at the end of a run. Win rate and max
// drawdown are fractions in [0, 1]. SharpeRatio is nil when fewer than
// two equity samples exist or the return variance is zero; a degenerate
// run yields well-defined zero values, never an error.
type Result struct {
	TotalPnL      float64
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	AvgProfit     float64
	AvgLoss       float64
	MaxDrawdown   float64
	SharpeRatio   *float64
	Trades        []ClosedTrade
	EquityCurve   []models.EquityPoint
}

// tradingDaysPerYear is the annualization factor for the Sharpe ratio.
// Daily sampling is assumed regardless of the actual row interval; this
// matches how existing strategies have been scored and is flagged to
// users rather than corrected.
const tradingDaysPerYear = 252

func emptyResult() *Result {
	return &Result{
		Trades:      make([]ClosedTrade, 0),
		EquityCurve: make([]models.EquityPoint, 0),
	}
}

// computeResult reduces the closed trade log and the equity curve into
// a Result.
func computeResult(trades []ClosedTrade, equity []models.EquityPoint) *Result {
	if len(trades) == 0 {
		result := emptyResult()
		result.EquityCurve = equity
		return result
	}

	result := &Result{
		Trades:      trades,
		EquityCurve: equity,
	}

	var profitSum, lossSum float64
	for _, trade := range trades {
		result.TotalPnL += trade.PnL
		if trade.PnL > 0 {
			result.WinningTrades++
			profitSum += trade.PnL
		} else {
			// Break-even counts as a loss.
			result.LosingTrades++
			lossSum += trade.PnL
		}
	}

	result.TotalTrades = len(trades)
	result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades)

	if result.WinningTrades > 0 {
		result.AvgProfit = profitSum / float64(result.WinningTrades)
	}
	if result.LosingTrades > 0 {
		result.AvgLoss = lossSum / float64(result.LosingTrades)
	}

	result.MaxDrawdown = maxDrawdown(equity)
	result.SharpeRatio = sharpeRatio(equity)

	return result
}

// maxDrawdown returns the absolute value of the deepest peak-to-trough
// decline of the equity curve, as a fraction of the running peak.
func maxDrawdown(equity []models.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}

	runningMax := equity[0].Equity
	worst := 0.0
	for _, point := range equity {
		if point.Equity > runningMax {
			runningMax = point.Equity
		}
		if runningMax <= 0 {
			continue
		}
		drawdown := (point.Equity - runningMax) / runningMax
		if drawdown < worst {
			worst = drawdown
		}
	}
	return math.Abs(worst)
}

// sharpeRatio computes mean(returns)/stdev(returns)*sqrt(252) over the
// period-over-period percentage returns of the equity curve. Returns
// nil when undefined.
func sharpeRatio(equity []models.EquityPoint) *float64 {
	if len(equity) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			return nil
		}
		returns = append(returns, (equity[i].Equity-prev)/prev)
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return nil
	}

	sharpe := mean / stdev * math.Sqrt(tradingDaysPerYear)
	return &sharpe
}
