package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"option-backtester/internal/backtest"
	apperrors "option-backtester/internal/errors"
	"option-backtester/internal/models"
)

// SQLiteStore implements ResultStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based result store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.NewStoreError("open", "failed to open database", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.NewStoreError("init", "failed to initialize schema", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Run summaries
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		strategy TEXT NOT NULL,
		dataset_path TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		initial_capital REAL NOT NULL,
		final_equity REAL NOT NULL,
		total_pnl REAL NOT NULL,
		total_trades INTEGER NOT NULL,
		winning_trades INTEGER NOT NULL,
		losing_trades INTEGER NOT NULL,
		win_rate REAL NOT NULL,
		max_drawdown REAL NOT NULL,
		sharpe_ratio REAL
	);

	-- Closed trades per run
	CREATE TABLE IF NOT EXISTS run_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		entry_time DATETIME NOT NULL,
		exit_time DATETIME NOT NULL,
		strike REAL NOT NULL,
		option_type TEXT NOT NULL,
		entry_premium REAL NOT NULL,
		exit_premium REAL NOT NULL,
		quantity INTEGER NOT NULL,
		pnl REAL NOT NULL,
		return_pct REAL NOT NULL,
		holding_days INTEGER NOT NULL,
		intrinsic_at_exit REAL NOT NULL,
		spot_at_exit REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_run_trades_run ON run_trades(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun persists a run summary and its trade log in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.BacktestRun, trades []backtest.ClosedTrade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("save_run", "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var sharpe sql.NullFloat64
	if run.SharpeRatio != nil {
		sharpe = sql.NullFloat64{Float64: *run.SharpeRatio, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, strategy, dataset_path, row_count, initial_capital, final_equity, total_pnl, total_trades, winning_trades, losing_trades, win_rate, max_drawdown, sharpe_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CreatedAt, run.Strategy, run.DatasetPath, run.Rows, run.InitialCapital, run.FinalEquity, run.TotalPnL, run.TotalTrades, run.WinningTrades, run.LosingTrades, run.WinRate, run.MaxDrawdown, sharpe)
	if err != nil {
		return apperrors.NewStoreError("save_run", "failed to insert run", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_trades (run_id, entry_time, exit_time, strike, option_type, entry_premium, exit_premium, quantity, pnl, return_pct, holding_days, intrinsic_at_exit, spot_at_exit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return apperrors.NewStoreError("save_run", "failed to prepare trade insert", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.ExecContext(ctx, run.ID, t.EntryTime, t.ExitTime, t.Strike, string(t.Type), t.EntryPremium, t.ExitPremium, t.Quantity, t.PnL, t.ReturnPct, t.HoldingDays, t.IntrinsicAtExit, t.SpotAtExit)
		if err != nil {
			return apperrors.NewStoreError("save_run", "failed to insert trade", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreError("save_run", "failed to commit transaction", err)
	}

	return nil
}

// GetRun retrieves a single run summary by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*models.BacktestRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, strategy, dataset_path, row_count, initial_capital, final_equity, total_pnl, total_trades, winning_trades, losing_trades, win_rate, max_drawdown, sharpe_ratio
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrRunNotFound, "run %s", id)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get_run", "failed to scan run", err)
	}
	return run, nil
}

// GetRuns retrieves run summaries, most recent first.
func (s *SQLiteStore) GetRuns(ctx context.Context, filter RunFilter) ([]models.BacktestRun, error) {
	query := "SELECT id, created_at, strategy, dataset_path, row_count, initial_capital, final_equity, total_pnl, total_trades, winning_trades, losing_trades, win_rate, max_drawdown, sharpe_ratio FROM runs WHERE 1=1"
	args := []interface{}{}

	if filter.Strategy != "" {
		query += " AND strategy = ?"
		args = append(args, filter.Strategy)
	}
	if !filter.StartDate.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("get_runs", "failed to query runs", err)
	}
	defer rows.Close()

	var runs []models.BacktestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("get_runs", "failed to scan run", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("get_runs", "error iterating runs", err)
	}

	return runs, nil
}

// GetTrades retrieves the trade log of a run in entry order.
func (s *SQLiteStore) GetTrades(ctx context.Context, runID string) ([]backtest.ClosedTrade, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_time, exit_time, strike, option_type, entry_premium, exit_premium, quantity, pnl, return_pct, holding_days, intrinsic_at_exit, spot_at_exit
		FROM run_trades WHERE run_id = ? ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, apperrors.NewStoreError("get_trades", "failed to query trades", err)
	}
	defer rows.Close()

	var trades []backtest.ClosedTrade
	for rows.Next() {
		var t backtest.ClosedTrade
		var optionType string
		if err := rows.Scan(&t.EntryTime, &t.ExitTime, &t.Strike, &optionType, &t.EntryPremium, &t.ExitPremium, &t.Quantity, &t.PnL, &t.ReturnPct, &t.HoldingDays, &t.IntrinsicAtExit, &t.SpotAtExit); err != nil {
			return nil, apperrors.NewStoreError("get_trades", "failed to scan trade", err)
		}
		t.Type = models.OptionType(optionType)
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*models.BacktestRun, error) {
	var run models.BacktestRun
	var sharpe sql.NullFloat64

	err := sc.Scan(&run.ID, &run.CreatedAt, &run.Strategy, &run.DatasetPath, &run.Rows, &run.InitialCapital, &run.FinalEquity, &run.TotalPnL, &run.TotalTrades, &run.WinningTrades, &run.LosingTrades, &run.WinRate, &run.MaxDrawdown, &sharpe)
	if err != nil {
		return nil, err
	}

	if sharpe.Valid {
		value := sharpe.Float64
		run.SharpeRatio = &value
	}
	return &run, nil
}
