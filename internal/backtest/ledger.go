package backtest

import (
	"time"

	"github.com/rs/zerolog"

	apperrors "option-backtester/internal/errors"
	"option-backtester/internal/models"
	"option-backtester/internal/pricing"
)

// Ledger tracks capital, open positions, closed trades and the equity
// curve for exactly one backtest run. It is not safe for concurrent
// use; parallel backtests need a ledger each.
type Ledger struct {
	initialCapital float64
	capital        float64
	positions      []*OptionPosition
	closed         []ClosedTrade
	equity         []models.EquityPoint
	valuer         pricing.Valuer
	logger         zerolog.Logger
}

// NewLedger creates a ledger with the given starting capital and the
// default heuristic valuer.
func NewLedger(initialCapital float64) *Ledger {
	return NewLedgerWithValuer(initialCapital, pricing.HeuristicValuer{})
}

// NewLedgerWithValuer creates a ledger that marks open positions to
// market with the supplied valuer.
func NewLedgerWithValuer(initialCapital float64, valuer pricing.Valuer) *Ledger {
	return &Ledger{
		initialCapital: initialCapital,
		capital:        initialCapital,
		positions:      make([]*OptionPosition, 0),
		closed:         make([]ClosedTrade, 0),
		equity:         make([]models.EquityPoint, 0),
		valuer:         valuer,
		logger:         zerolog.Nop(),
	}
}

// SetLogger attaches a logger for trade-level events.
func (l *Ledger) SetLogger(logger zerolog.Logger) {
	l.logger = logger
}

// Buy opens a position. The buy is rejected with ErrInsufficientCapital
// when the entry cost exceeds available capital; capital and the open
// set are left unchanged on any failure.
func (l *Ledger) Buy(strike float64, typ models.OptionType, premium float64, quantity int, entryTime, expiry time.Time, iv float64) error {
	position, err := NewOptionPosition(strike, typ, premium, quantity, entryTime, expiry, iv)
	if err != nil {
		return err
	}

	cost := premium * float64(quantity)
	if cost > l.capital {
		return apperrors.ErrInsufficientCapital
	}

	l.capital -= cost
	l.positions = append(l.positions, position)

	l.logger.Debug().
		Str("event", "buy").
		Float64("strike", strike).
		Str("type", string(typ)).
		Float64("premium", premium).
		Int("quantity", quantity).
		Float64("capital", l.capital).
		Msg("Position opened")

	return nil
}

// Close removes the position at idx from the open set, credits capital
// with the exit proceeds and records the round trip. The entry premium
// on the trade is the position's current (possibly decayed) premium.
func (l *Ledger) Close(idx int, exitPremium float64, exitTime time.Time, spot float64) (*ClosedTrade, error) {
	if idx < 0 || idx >= len(l.positions) {
		return nil, apperrors.ErrPositionNotFound
	}

	position := l.positions[idx]
	l.positions = append(l.positions[:idx], l.positions[idx+1:]...)

	entryCost := position.Premium * float64(position.Quantity)
	exitValue := exitPremium * float64(position.Quantity)
	pnl := exitValue - entryCost

	l.capital += exitValue

	returnPct := 0.0
	if entryCost > 0 {
		returnPct = pnl / entryCost * 100
	}

	trade := ClosedTrade{
		EntryTime:       position.EntryTime,
		ExitTime:        exitTime,
		Strike:          position.Strike,
		Type:            position.Type,
		EntryPremium:    position.Premium,
		ExitPremium:     exitPremium,
		Quantity:        position.Quantity,
		PnL:             pnl,
		ReturnPct:       returnPct,
		HoldingDays:     wholeDays(position.EntryTime, exitTime),
		IntrinsicAtExit: pricing.IntrinsicValue(spot, position.Strike, position.Type),
		SpotAtExit:      spot,
	}
	l.closed = append(l.closed, trade)

	l.logger.Debug().
		Str("event", "close").
		Float64("strike", trade.Strike).
		Str("type", string(trade.Type)).
		Float64("exit_premium", exitPremium).
		Float64("pnl", pnl).
		Float64("capital", l.capital).
		Msg("Position closed")

	return &trade, nil
}

// AdvanceTime applies theta decay to every open position and then
// force-closes everything at or past expiry at intrinsic value. Expired
// positions are collected first and removed in reverse index order so
// that several expiries in one step neither skip nor double-close.
func (l *Ledger) AdvanceTime(now time.Time, spot float64, daysPassed float64) {
	var expired []int

	for i, position := range l.positions {
		daysToExpiry := wholeDays(now, position.Expiry)

		if daysToExpiry <= 0 {
			expired = append(expired, i)
			continue
		}

		if position.IV > 0 {
			theta := pricing.ThetaDecay(daysToExpiry, position.Premium, position.IV)
			position.Premium = position.Premium - theta*daysPassed
			if position.Premium < 0 {
				position.Premium = 0
			}
		}
	}

	for i := len(expired) - 1; i >= 0; i-- {
		idx := expired[i]
		intrinsic := pricing.IntrinsicValue(spot, l.positions[idx].Strike, l.positions[idx].Type)
		// Close cannot fail here: idx is in range by construction.
		l.Close(idx, intrinsic, now, spot)
	}
}

// PortfolioValue returns capital plus the mark-to-market value of every
// open position. Read-only.
func (l *Ledger) PortfolioValue(now time.Time, spot float64) float64 {
	value := l.capital
	for _, position := range l.positions {
		daysToExpiry := wholeDays(now, position.Expiry)
		value += l.valuer.PositionValue(spot, position.Strike, position.Type, position.Premium, position.Quantity, daysToExpiry)
	}
	return value
}

// RecordEquity appends the current portfolio value to the equity curve.
func (l *Ledger) RecordEquity(now time.Time, spot float64) {
	l.equity = append(l.equity, models.EquityPoint{
		Timestamp: now,
		Equity:    l.PortfolioValue(now, spot),
	})
}

// Capital returns the current cash balance.
func (l *Ledger) Capital() float64 {
	return l.capital
}

// InitialCapital returns the configured starting capital.
func (l *Ledger) InitialCapital() float64 {
	return l.initialCapital
}

// OpenCount returns the number of open positions.
func (l *Ledger) OpenCount() int {
	return len(l.positions)
}

// OpenPositions returns a snapshot of the open positions in entry order.
func (l *Ledger) OpenPositions() []OptionPosition {
	snapshot := make([]OptionPosition, len(l.positions))
	for i, p := range l.positions {
		snapshot[i] = *p
	}
	return snapshot
}

// ClosedTrades returns a snapshot of the closed trade log in close order.
func (l *Ledger) ClosedTrades() []ClosedTrade {
	snapshot := make([]ClosedTrade, len(l.closed))
	copy(snapshot, l.closed)
	return snapshot
}

// EquityCurve returns a snapshot of the recorded equity samples.
func (l *Ledger) EquityCurve() []models.EquityPoint {
	snapshot := make([]models.EquityPoint, len(l.equity))
	copy(snapshot, l.equity)
	return snapshot
}
