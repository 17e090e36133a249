// Package backtest simulates buying and holding option contracts
// against a chronological series of spot prices and strategy signals.
package backtest

import (
	"sort"

	"github.com/rs/zerolog"

	apperrors "option-backtester/internal/errors"
	"option-backtester/internal/models"
	"option-backtester/internal/pricing"
)

// Strategy generates trade signals for a single dataset row. The engine
// only executes and scores whatever signals it receives; it places no
// constraint on strategy internals beyond the signal shape.
type Strategy interface {
	Name() string
	Signals(row models.ChainRow) []models.Signal
}

// Config holds engine configuration.
type Config struct {
	InitialCapital    float64
	DefaultQuantity   int
	DefaultExpiryDays int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		InitialCapital:    100000,
		DefaultQuantity:   1,
		DefaultExpiryDays: 30,
	}
}

// Engine runs option backtests. It is stateless across runs; every Run
// call builds a fresh ledger.
type Engine struct {
	cfg    Config
	valuer pricing.Valuer
	logger zerolog.Logger
}

// NewEngine creates a backtest engine.
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	if cfg.DefaultQuantity <= 0 {
		cfg.DefaultQuantity = 1
	}
	if cfg.DefaultExpiryDays <= 0 {
		cfg.DefaultExpiryDays = 30
	}
	return &Engine{
		cfg:    cfg,
		valuer: pricing.HeuristicValuer{},
		logger: logger,
	}
}

// SetValuer replaces the mark-to-market valuer used by subsequent runs.
func (e *Engine) SetValuer(v pricing.Valuer) {
	e.valuer = v
}

// Run executes a backtest over the given rows. Rows are defensively
// sorted by timestamp before iteration; malformed rows are rejected
// upfront so a bad dataset is never partially processed. An empty
// dataset yields the canonical empty result.
func (e *Engine) Run(rows []models.ChainRow, strat Strategy) (*Result, error) {
	if err := validateRows(rows); err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return emptyResult(), nil
	}

	sorted := make([]models.ChainRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	ledger := NewLedgerWithValuer(e.cfg.InitialCapital, e.valuer)
	ledger.SetLogger(e.logger)

	e.logger.Info().
		Str("strategy", strat.Name()).
		Int("rows", len(sorted)).
		Float64("initial_capital", e.cfg.InitialCapital).
		Msg("Backtest started")

	for i, row := range sorted {
		daysPassed := 1.0
		if i > 0 {
			daysPassed = float64(wholeDays(sorted[i-1].Timestamp, row.Timestamp))
		}

		ledger.AdvanceTime(row.Timestamp, row.Spot, daysPassed)

		for _, signal := range strat.Signals(row) {
			e.execute(ledger, row, signal)
		}

		ledger.RecordEquity(row.Timestamp, row.Spot)
	}

	// Liquidate whatever is still open at the simulation horizon,
	// oldest position first, at intrinsic value.
	last := sorted[len(sorted)-1]
	for ledger.OpenCount() > 0 {
		position := ledger.OpenPositions()[0]
		intrinsic := pricing.IntrinsicValue(last.Spot, position.Strike, position.Type)
		if _, err := ledger.Close(0, intrinsic, last.Timestamp, last.Spot); err != nil {
			return nil, apperrors.Wrap(err, "final liquidation")
		}
	}

	result := computeResult(ledger.ClosedTrades(), ledger.EquityCurve())

	e.logger.Info().
		Str("strategy", strat.Name()).
		Int("trades", result.TotalTrades).
		Float64("total_pnl", result.TotalPnL).
		Float64("max_drawdown", result.MaxDrawdown).
		Msg("Backtest finished")

	return result, nil
}

// execute applies signal defaults and attempts the buy. Insufficient
// capital drops the signal silently; capital exhaustion is a constraint
// on the strategy, not a failure of the run. Invalid signals are logged
// and skipped.
func (e *Engine) execute(ledger *Ledger, row models.ChainRow, signal models.Signal) {
	if signal.Action != models.SignalBuy {
		return
	}

	quantity := signal.Quantity
	if quantity <= 0 {
		quantity = e.cfg.DefaultQuantity
	}

	expiry := signal.Expiry
	if expiry.IsZero() {
		expiry = row.Timestamp.AddDate(0, 0, e.cfg.DefaultExpiryDays)
	}

	err := ledger.Buy(signal.Strike, signal.Type, signal.Premium, quantity, row.Timestamp, expiry, signal.IV)
	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.ErrInsufficientCapital):
		e.logger.Debug().
			Float64("strike", signal.Strike).
			Float64("premium", signal.Premium).
			Int("quantity", quantity).
			Float64("capital", ledger.Capital()).
			Msg("Signal dropped: insufficient capital")
	default:
		e.logger.Warn().
			Err(err).
			Float64("strike", signal.Strike).
			Str("type", string(signal.Type)).
			Msg("Signal rejected")
	}
}

// validateRows rejects a malformed dataset before the loop begins.
func validateRows(rows []models.ChainRow) error {
	for i, row := range rows {
		if row.Timestamp.IsZero() {
			return apperrors.Wrapf(apperrors.ErrMalformedRow, "row %d: missing timestamp", i+1)
		}
		if row.Spot <= 0 {
			return apperrors.Wrapf(apperrors.ErrMalformedRow, "row %d: spot %v not positive", i+1, row.Spot)
		}
	}
	return nil
}
