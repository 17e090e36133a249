package models

import "time"

// BacktestRun is the persisted summary of a completed backtest.
// SharpeRatio is nil when the run produced too few equity points to
// annualize returns.
type BacktestRun struct {
	ID             string
	CreatedAt      time.Time
	Strategy       string
	DatasetPath    string
	Rows           int
	InitialCapital float64
	FinalEquity    float64
	TotalPnL       float64
	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	WinRate        float64
	MaxDrawdown    float64
	SharpeRatio    *float64
}
