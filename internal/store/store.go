// Package store provides persistence for backtest runs and their trade
// logs.
package store

import (
	"context"
	"time"

	"option-backtester/internal/backtest"
	"option-backtester/internal/models"
)

// ResultStore defines the interface for backtest result persistence.
type ResultStore interface {
	// Runs
	SaveRun(ctx context.Context, run *models.BacktestRun, trades []backtest.ClosedTrade) error
	GetRun(ctx context.Context, id string) (*models.BacktestRun, error)
	GetRuns(ctx context.Context, filter RunFilter) ([]models.BacktestRun, error)

	// Trades
	GetTrades(ctx context.Context, runID string) ([]backtest.ClosedTrade, error)

	// Lifecycle
	Close() error
}

// RunFilter represents filters for querying saved runs.
type RunFilter struct {
	Strategy  string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
