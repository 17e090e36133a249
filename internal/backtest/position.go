package backtest

import (
	"time"

	apperrors "option-backtester/internal/errors"
	"option-backtester/internal/models"
)

// OptionPosition is an open exchange-traded option holding. Premium is
// the current per-unit value and is only mutated by theta decay; the
// other fields are fixed at entry.
type OptionPosition struct {
	Strike    float64
	Type      models.OptionType
	Premium   float64
	Quantity  int
	EntryTime time.Time
	Expiry    time.Time
	IV        float64 // zero means unknown, no decay is applied
}

// NewOptionPosition validates and creates an open position.
func NewOptionPosition(strike float64, typ models.OptionType, premium float64, quantity int, entryTime, expiry time.Time, iv float64) (*OptionPosition, error) {
	if !typ.Valid() {
		return nil, apperrors.ErrInvalidOptionType
	}
	if strike <= 0 {
		return nil, apperrors.ErrInvalidStrike
	}
	if quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	if expiry.Before(entryTime) {
		return nil, apperrors.ErrInvalidExpiry
	}
	return &OptionPosition{
		Strike:    strike,
		Type:      typ,
		Premium:   premium,
		Quantity:  quantity,
		EntryTime: entryTime,
		Expiry:    expiry,
		IV:        iv,
	}, nil
}

// ClosedTrade is an immutable record of a completed round trip. It is
// created exactly once when a position leaves the open set.
type ClosedTrade struct {
	EntryTime       time.Time
	ExitTime        time.Time
	Strike          float64
	Type            models.OptionType
	EntryPremium    float64
	ExitPremium     float64
	Quantity        int
	PnL             float64
	ReturnPct       float64
	HoldingDays     int
	IntrinsicAtExit float64
	SpotAtExit      float64
}

// wholeDays returns the number of whole days between two instants,
// truncated toward zero. Same-day round trips read as zero days; the
// statistics downstream assume day granularity.
func wholeDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
