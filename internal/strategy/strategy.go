// Package strategy provides built-in signal-generating strategies for
// the backtest engine. Strategies are the engine's sole extension
// point: anything implementing backtest.Strategy can be plugged in.
package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"option-backtester/internal/backtest"
	"option-backtester/internal/models"
)

// Config is the value object handed to built-in strategies. Zero
// fields fall back to the documented defaults.
type Config struct {
	Quantity          int     // lots per signal, default 1
	ExpiryDays        int     // contract lifetime in days, default 30
	StrikeStep        float64 // strike rounding grid, default 50
	PremiumPct        float64 // fallback premium as a fraction of spot, default 0.01
	MomentumThreshold float64 // spot change (%) that triggers momentum entries, default 1.0
	PCRBullish        float64 // put-call ratio at or above which sentiment is bullish, default 1.3
	PCRBearish        float64 // put-call ratio at or below which sentiment is bearish, default 0.7
}

func (c Config) withDefaults() Config {
	if c.Quantity <= 0 {
		c.Quantity = 1
	}
	if c.ExpiryDays <= 0 {
		c.ExpiryDays = 30
	}
	if c.StrikeStep <= 0 {
		c.StrikeStep = 50
	}
	if c.PremiumPct <= 0 {
		c.PremiumPct = 0.01
	}
	if c.MomentumThreshold <= 0 {
		c.MomentumThreshold = 1.0
	}
	if c.PCRBullish <= 0 {
		c.PCRBullish = 1.3
	}
	if c.PCRBearish <= 0 {
		c.PCRBearish = 0.7
	}
	return c
}

// New returns the named built-in strategy.
func New(name string, cfg Config) (backtest.Strategy, error) {
	switch strings.ToLower(name) {
	case "hold":
		return &Hold{}, nil
	case "momentum":
		return NewMomentum(cfg), nil
	case "pcr":
		return NewPCRSentiment(cfg), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (have: %s)", name, strings.Join(Names(), ", "))
	}
}

// Names lists the built-in strategy names.
func Names() []string {
	names := []string{"hold", "momentum", "pcr"}
	sort.Strings(names)
	return names
}

// Hold never trades. Useful as a baseline and for dataset dry runs.
type Hold struct{}

// Name implements backtest.Strategy.
func (*Hold) Name() string { return "hold" }

// Signals implements backtest.Strategy.
func (*Hold) Signals(models.ChainRow) []models.Signal { return nil }

// Momentum buys an at-the-money option in the direction of the spot
// move whenever the step-over-step change exceeds the configured
// threshold. It keeps the previous row's spot as state, so an instance
// belongs to exactly one run.
type Momentum struct {
	cfg      Config
	prevSpot float64
}

// NewMomentum creates a momentum strategy.
func NewMomentum(cfg Config) *Momentum {
	return &Momentum{cfg: cfg.withDefaults()}
}

// Name implements backtest.Strategy.
func (*Momentum) Name() string { return "momentum" }

// Signals implements backtest.Strategy.
func (m *Momentum) Signals(row models.ChainRow) []models.Signal {
	prev := m.prevSpot
	m.prevSpot = row.Spot

	if prev == 0 {
		return nil
	}

	changePct := (row.Spot - prev) / prev * 100
	switch {
	case changePct >= m.cfg.MomentumThreshold:
		return []models.Signal{m.atmSignal(row, models.OptionTypeCall)}
	case changePct <= -m.cfg.MomentumThreshold:
		return []models.Signal{m.atmSignal(row, models.OptionTypePut)}
	default:
		return nil
	}
}

func (m *Momentum) atmSignal(row models.ChainRow, typ models.OptionType) models.Signal {
	return atmSignal(m.cfg, row, typ)
}

// PCRSentiment trades the put-call open interest ratio as a contrarian
// sentiment gauge: heavy put writing (high PCR) reads bullish, heavy
// call writing (low PCR) reads bearish.
type PCRSentiment struct {
	cfg Config
}

// NewPCRSentiment creates a PCR sentiment strategy.
func NewPCRSentiment(cfg Config) *PCRSentiment {
	return &PCRSentiment{cfg: cfg.withDefaults()}
}

// Name implements backtest.Strategy.
func (*PCRSentiment) Name() string { return "pcr" }

// Signals implements backtest.Strategy.
func (s *PCRSentiment) Signals(row models.ChainRow) []models.Signal {
	pcr := row.PCR()
	if pcr == 0 {
		return nil
	}

	switch {
	case pcr >= s.cfg.PCRBullish:
		return []models.Signal{atmSignal(s.cfg, row, models.OptionTypeCall)}
	case pcr <= s.cfg.PCRBearish:
		return []models.Signal{atmSignal(s.cfg, row, models.OptionTypePut)}
	default:
		return nil
	}
}

// atmSignal builds a buy signal at the nearest strike, using the chain
// LTP for the premium when present and a spot fraction otherwise.
func atmSignal(cfg Config, row models.ChainRow, typ models.OptionType) models.Signal {
	premium := row.CallLTP
	iv := row.CallIV
	if typ == models.OptionTypePut {
		premium = row.PutLTP
		iv = row.PutIV
	}
	if premium <= 0 {
		premium = row.Spot * cfg.PremiumPct
	}

	return models.Signal{
		Action:   models.SignalBuy,
		Strike:   roundStrike(row.Spot, cfg.StrikeStep),
		Type:     typ,
		Premium:  premium,
		Quantity: cfg.Quantity,
		Expiry:   row.Timestamp.AddDate(0, 0, cfg.ExpiryDays),
		IV:       iv / 100,
	}
}

// roundStrike snaps the spot to the nearest strike on the grid.
func roundStrike(spot, step float64) float64 {
	return math.Round(spot/step) * step
}
