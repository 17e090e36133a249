package backtest

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	apperrors "option-backtester/internal/errors"
	"option-backtester/internal/models"
)

// stubStrategy adapts a plain function for engine tests.
type stubStrategy struct {
	name string
	fn   func(row models.ChainRow) []models.Signal
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Signals(row models.ChainRow) []models.Signal {
	if s.fn == nil {
		return nil
	}
	return s.fn(row)
}

func holdStrategy() Strategy {
	return stubStrategy{name: "hold"}
}

func buyOnce(signal models.Signal) Strategy {
	fired := false
	return stubStrategy{
		name: "buy-once",
		fn: func(row models.ChainRow) []models.Signal {
			if fired {
				return nil
			}
			fired = true
			return []models.Signal{signal}
		},
	}
}

func rows(spots ...float64) []models.ChainRow {
	out := make([]models.ChainRow, len(spots))
	for i, spot := range spots {
		out[i] = models.ChainRow{Timestamp: day(i), Spot: spot}
	}
	return out
}

func newTestEngine() *Engine {
	cfg := DefaultConfig()
	cfg.InitialCapital = 1000
	return NewEngine(cfg, zerolog.Nop())
}

func TestEngineEmptyDataset(t *testing.T) {
	result, err := newTestEngine().Run(nil, holdStrategy())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.TotalTrades != 0 || result.TotalPnL != 0 || result.WinRate != 0 {
		t.Errorf("empty run result not canonical: %+v", result)
	}
	if result.SharpeRatio != nil {
		t.Error("SharpeRatio should be absent for empty run")
	}
	if result.Trades == nil || len(result.Trades) != 0 {
		t.Error("Trades should be an empty, non-nil log")
	}
}

func TestEngineMalformedRows(t *testing.T) {
	tests := []struct {
		name string
		rows []models.ChainRow
	}{
		{"zero timestamp", []models.ChainRow{{Spot: 100}}},
		{"non-positive spot", []models.ChainRow{{Timestamp: day(0), Spot: 0}}},
		{"bad row after good row", []models.ChainRow{
			{Timestamp: day(0), Spot: 100},
			{Timestamp: day(1), Spot: -5},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestEngine().Run(tt.rows, holdStrategy())
			if !apperrors.Is(err, apperrors.ErrMalformedRow) {
				t.Errorf("Run error = %v, want ErrMalformedRow", err)
			}
		})
	}
}

func TestEngineSpecScenario(t *testing.T) {
	// Buy 1 CALL strike 100 premium 5 qty 10 on day 0 expiring day 5;
	// at day 5 spot 110 the position force-closes at intrinsic 10.
	strat := buyOnce(models.Signal{
		Action:   models.SignalBuy,
		Strike:   100,
		Type:     models.OptionTypeCall,
		Premium:  5,
		Quantity: 10,
		Expiry:   day(5),
	})

	data := []models.ChainRow{
		{Timestamp: day(0), Spot: 100},
		{Timestamp: day(5), Spot: 110},
	}

	result, err := newTestEngine().Run(data, strat)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.TotalTrades != 1 {
		t.Fatalf("trades = %d, want 1", result.TotalTrades)
	}
	trade := result.Trades[0]
	if trade.ExitPremium != 10 {
		t.Errorf("exit premium = %v, want 10", trade.ExitPremium)
	}
	if trade.PnL != 50 {
		t.Errorf("PnL = %v, want 50", trade.PnL)
	}
	if result.WinningTrades != 1 || result.WinRate != 1 {
		t.Errorf("win stats = %d/%v, want 1/1", result.WinningTrades, result.WinRate)
	}
}

func TestEngineSortsRowsDefensively(t *testing.T) {
	data := []models.ChainRow{
		{Timestamp: day(5), Spot: 110},
		{Timestamp: day(0), Spot: 100},
		{Timestamp: day(2), Spot: 104},
	}

	result, err := newTestEngine().Run(data, holdStrategy())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	curve := result.EquityCurve
	if len(curve) != 3 {
		t.Fatalf("equity samples = %d, want 3", len(curve))
	}
	for i := 1; i < len(curve); i++ {
		if curve[i].Timestamp.Before(curve[i-1].Timestamp) {
			t.Fatal("equity curve not in chronological order")
		}
	}
}

func TestEngineDropsUnaffordableSignals(t *testing.T) {
	// Every row asks for more than the ledger holds; the run still
	// completes with zero trades.
	strat := stubStrategy{
		name: "greedy",
		fn: func(row models.ChainRow) []models.Signal {
			return []models.Signal{{
				Action:   models.SignalBuy,
				Strike:   row.Spot,
				Type:     models.OptionTypeCall,
				Premium:  500,
				Quantity: 100,
			}}
		},
	}

	result, err := newTestEngine().Run(rows(100, 101, 102), strat)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TotalTrades != 0 {
		t.Errorf("trades = %d, want 0 (all signals dropped)", result.TotalTrades)
	}
	for _, point := range result.EquityCurve {
		if point.Equity != 1000 {
			t.Errorf("equity = %v, want untouched 1000", point.Equity)
		}
	}
}

func TestEngineSignalDefaults(t *testing.T) {
	strat := buyOnce(models.Signal{
		Action:  models.SignalBuy,
		Strike:  100,
		Type:    models.OptionTypeCall,
		Premium: 5,
		// Quantity and Expiry unset.
	})

	data := []models.ChainRow{
		{Timestamp: day(0), Spot: 100},
		{Timestamp: day(1), Spot: 102},
	}

	result, err := newTestEngine().Run(data, strat)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.TotalTrades != 1 {
		t.Fatalf("trades = %d, want 1", result.TotalTrades)
	}
	trade := result.Trades[0]
	if trade.Quantity != 1 {
		t.Errorf("quantity = %d, want default 1", trade.Quantity)
	}
	// Defaulted expiry (entry+30d) outlives the horizon, so the trade
	// is a liquidation close on the last row.
	if !trade.ExitTime.Equal(day(1)) {
		t.Errorf("exit time = %v, want final row %v", trade.ExitTime, day(1))
	}
}

func TestEngineFinalLiquidationOldestFirst(t *testing.T) {
	strat := stubStrategy{
		name: "ladder",
		fn: func(row models.ChainRow) []models.Signal {
			return []models.Signal{{
				Action:  models.SignalBuy,
				Strike:  row.Spot,
				Type:    models.OptionTypeCall,
				Premium: 5,
			}}
		},
	}

	result, err := newTestEngine().Run(rows(100, 105, 110), strat)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.TotalTrades != 3 {
		t.Fatalf("trades = %d, want 3", result.TotalTrades)
	}
	// Liquidation runs oldest entry first, so strikes appear 100, 105, 110.
	wantStrikes := []float64{100, 105, 110}
	for i, trade := range result.Trades {
		if trade.Strike != wantStrikes[i] {
			t.Errorf("trade %d strike = %v, want %v", i, trade.Strike, wantStrikes[i])
		}
		if !trade.ExitTime.Equal(day(2)) {
			t.Errorf("trade %d exit time = %v, want horizon %v", i, trade.ExitTime, day(2))
		}
		if trade.SpotAtExit != 110 {
			t.Errorf("trade %d spot at exit = %v, want 110", i, trade.SpotAtExit)
		}
	}
}

func TestEngineThetaDecayOverRun(t *testing.T) {
	// With IV set the premium decays each step; the horizon close is at
	// intrinsic (zero for an OTM contract), so PnL is measured against
	// the decayed premium.
	strat := buyOnce(models.Signal{
		Action:  models.SignalBuy,
		Strike:  200,
		Type:    models.OptionTypeCall,
		Premium: 10,
		IV:      0.5,
		Expiry:  day(40),
	})

	data := []models.ChainRow{
		{Timestamp: day(0), Spot: 100},
		{Timestamp: day(1), Spot: 100},
		{Timestamp: day(2), Spot: 100},
	}

	result, err := newTestEngine().Run(data, strat)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.TotalTrades != 1 {
		t.Fatalf("trades = %d, want 1", result.TotalTrades)
	}
	trade := result.Trades[0]
	if trade.EntryPremium >= 10 {
		t.Errorf("entry premium = %v, want decayed below 10", trade.EntryPremium)
	}
	if trade.ExitPremium != 0 {
		t.Errorf("exit premium = %v, want intrinsic 0 for OTM call", trade.ExitPremium)
	}
	if trade.PnL >= 0 {
		t.Errorf("PnL = %v, want negative", trade.PnL)
	}
}

func TestEngineDaysPassedBetweenRows(t *testing.T) {
	// Two rows five days apart: decay applies once with daysPassed=5
	// plus the first-row default of 1.
	strat := buyOnce(models.Signal{
		Action:  models.SignalBuy,
		Strike:  200,
		Type:    models.OptionTypeCall,
		Premium: 10,
		IV:      0.2,
		Expiry:  day(60),
	})

	data := []models.ChainRow{
		{Timestamp: day(0), Spot: 100},
		{Timestamp: day(5), Spot: 100},
	}

	result, err := newTestEngine().Run(data, strat)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Decay on the day(5) step: days to expiry = 55,
	// theta = 0.2*10/56, premium = 10 - theta*5.
	wantPremium := 10 - (0.2*10/56)*5
	trade := result.Trades[0]
	if math.Abs(trade.EntryPremium-wantPremium) > 1e-9 {
		t.Errorf("entry premium = %v, want %v", trade.EntryPremium, wantPremium)
	}
}

func TestEngineIgnoresNonBuySignals(t *testing.T) {
	strat := stubStrategy{
		name: "noise",
		fn: func(row models.ChainRow) []models.Signal {
			return []models.Signal{{Action: models.SignalAction("sell"), Strike: 100, Type: models.OptionTypeCall, Premium: 5}}
		},
	}

	result, err := newTestEngine().Run(rows(100, 101), strat)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TotalTrades != 0 {
		t.Errorf("trades = %d, want 0", result.TotalTrades)
	}
}

func TestEngineSkipsInvalidSignals(t *testing.T) {
	bad := buyOnce(models.Signal{
		Action:  models.SignalBuy,
		Strike:  100,
		Type:    models.OptionType("BUTTERFLY"),
		Premium: 5,
	})

	result, err := newTestEngine().Run(rows(100, 101), bad)
	if err != nil {
		t.Fatalf("Run should survive an invalid signal, got %v", err)
	}
	if result.TotalTrades != 0 {
		t.Errorf("trades = %d, want 0", result.TotalTrades)
	}
}
