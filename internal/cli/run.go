package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"option-backtester/internal/backtest"
	"option-backtester/internal/dataset"
	"option-backtester/internal/logging"
	"option-backtester/internal/models"
	"option-backtester/internal/strategy"
	"option-backtester/pkg/utils"
)

// runSummary is the JSON shape for a completed run.
type runSummary struct {
	RunID          string   `json:"run_id,omitempty"`
	Strategy       string   `json:"strategy"`
	Dataset        string   `json:"dataset"`
	Rows           int      `json:"rows"`
	InitialCapital float64  `json:"initial_capital"`
	FinalEquity    float64  `json:"final_equity"`
	TotalPnL       float64  `json:"total_pnl"`
	TotalTrades    int      `json:"total_trades"`
	WinningTrades  int      `json:"winning_trades"`
	LosingTrades   int      `json:"losing_trades"`
	WinRate        float64  `json:"win_rate"`
	AvgProfit      float64  `json:"avg_profit"`
	AvgLoss        float64  `json:"avg_loss"`
	MaxDrawdown    float64  `json:"max_drawdown"`
	SharpeRatio    *float64 `json:"sharpe_ratio"`
}

func newRunCmd(app *App) *cobra.Command {
	var (
		dataPath   string
		stratName  string
		capital    float64
		quantity   int
		expiryDays int
		showTrades bool
		noSave     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest over a CSV dataset",
		Long: `Run replays a historical option chain dataset through a strategy and
reports the final statistics. Results are saved to the local database
unless --no-save is given.

Example:
  backtester run --data nifty_2024.csv --strategy momentum
  backtester run --data nifty_2024.csv --strategy pcr --capital 500000 --trades`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			started := time.Now()

			rows, err := dataset.Load(dataPath)
			if err != nil {
				return err
			}

			if capital <= 0 {
				capital = app.Config.Backtest.InitialCapital
			}
			if quantity <= 0 {
				quantity = app.Config.Backtest.DefaultQuantity
			}
			if expiryDays <= 0 {
				expiryDays = app.Config.Backtest.DefaultExpiryDays
			}

			strat, err := strategy.New(stratName, strategy.Config{
				Quantity:          quantity,
				ExpiryDays:        expiryDays,
				StrikeStep:        app.Config.Strategy.StrikeStep,
				PremiumPct:        app.Config.Strategy.PremiumPct,
				MomentumThreshold: app.Config.Strategy.MomentumThreshold,
				PCRBullish:        app.Config.Strategy.PCRBullish,
				PCRBearish:        app.Config.Strategy.PCRBearish,
			})
			if err != nil {
				return err
			}

			logger := logging.WithStrategy(app.Logger, strat.Name())
			logging.LogRunStart(logger, strat.Name(), dataPath, len(rows), capital)

			engine := backtest.NewEngine(backtest.Config{
				InitialCapital:    capital,
				DefaultQuantity:   quantity,
				DefaultExpiryDays: expiryDays,
			}, logger)

			result, err := engine.Run(rows, strat)
			if err != nil {
				return err
			}

			runID := ""
			if !noSave && app.Store != nil {
				runID = fmt.Sprintf("bt-%d", time.Now().UnixNano())
				run := &models.BacktestRun{
					ID:             runID,
					CreatedAt:      time.Now().UTC(),
					Strategy:       strat.Name(),
					DatasetPath:    dataPath,
					Rows:           len(rows),
					InitialCapital: capital,
					FinalEquity:    finalEquity(capital, result),
					TotalPnL:       result.TotalPnL,
					TotalTrades:    result.TotalTrades,
					WinningTrades:  result.WinningTrades,
					LosingTrades:   result.LosingTrades,
					WinRate:        result.WinRate,
					MaxDrawdown:    result.MaxDrawdown,
					SharpeRatio:    result.SharpeRatio,
				}
				if err := app.Store.SaveRun(context.Background(), run, result.Trades); err != nil {
					logger.Warn().Err(err).Msg("Failed to save run")
					runID = ""
				}
			}

			logging.LogRunComplete(logger, runID, result.TotalTrades, result.TotalPnL, time.Since(started))

			if output.IsJSON() {
				return output.JSON(runSummary{
					RunID:          runID,
					Strategy:       strat.Name(),
					Dataset:        dataPath,
					Rows:           len(rows),
					InitialCapital: capital,
					FinalEquity:    finalEquity(capital, result),
					TotalPnL:       result.TotalPnL,
					TotalTrades:    result.TotalTrades,
					WinningTrades:  result.WinningTrades,
					LosingTrades:   result.LosingTrades,
					WinRate:        result.WinRate,
					AvgProfit:      result.AvgProfit,
					AvgLoss:        result.AvgLoss,
					MaxDrawdown:    result.MaxDrawdown,
					SharpeRatio:    result.SharpeRatio,
				})
			}

			displayResult(output, strat.Name(), dataPath, capital, result, runID)
			if showTrades {
				output.Println()
				displayTrades(output, result.Trades)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "path to the CSV dataset (required)")
	cmd.Flags().StringVar(&stratName, "strategy", "hold", "strategy to run: "+strings.Join(strategy.Names(), ", "))
	cmd.Flags().Float64Var(&capital, "capital", 0, "initial capital (default from config)")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "contracts per signal (default from config)")
	cmd.Flags().IntVar(&expiryDays, "expiry-days", 0, "contract lifetime in days (default from config)")
	cmd.Flags().BoolVar(&showTrades, "trades", false, "print the closed trade log")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the run")
	cmd.MarkFlagRequired("data")

	return cmd
}

// finalEquity is the last equity sample, or the untouched capital when
// the run produced no curve.
func finalEquity(capital float64, result *backtest.Result) float64 {
	if len(result.EquityCurve) == 0 {
		return capital
	}
	return result.EquityCurve[len(result.EquityCurve)-1].Equity
}

func displayResult(output *Output, stratName, dataPath string, capital float64, result *backtest.Result, runID string) {
	output.Bold("Backtest Result")
	output.Printf("  Strategy:        %s\n", stratName)
	output.Printf("  Dataset:         %s\n", dataPath)
	output.Printf("  Initial Capital: %s\n", utils.FormatIndianCurrency(capital))
	output.Printf("  Final Equity:    %s\n", utils.FormatIndianCurrency(finalEquity(capital, result)))
	output.Printf("  Total P&L:       %s\n", output.FormatPnL(result.TotalPnL))
	output.Println()

	output.Bold("Statistics")
	output.Printf("  Trades:       %d (%d wins, %d losses)\n", result.TotalTrades, result.WinningTrades, result.LosingTrades)
	output.Printf("  Win Rate:     %s\n", utils.FormatFraction(result.WinRate))
	output.Printf("  Avg Profit:   %s\n", utils.FormatIndianCurrency(result.AvgProfit))
	output.Printf("  Avg Loss:     %s\n", utils.FormatIndianCurrency(result.AvgLoss))
	output.Printf("  Max Drawdown: %s\n", utils.FormatFraction(result.MaxDrawdown))
	output.Printf("  Sharpe Ratio: %s\n", utils.FormatSharpe(result.SharpeRatio))

	if runID != "" {
		output.Println()
		output.Dim("Saved as %s", runID)
	}
}

func displayTrades(output *Output, trades []backtest.ClosedTrade) {
	if len(trades) == 0 {
		output.Dim("No trades")
		return
	}

	table := NewTable(output, "ENTRY", "EXIT", "STRIKE", "TYPE", "QTY", "ENTRY PREM", "EXIT PREM", "P&L", "RETURN", "DAYS")
	for _, t := range trades {
		table.AddRow(
			t.EntryTime.Format("2006-01-02"),
			t.ExitTime.Format("2006-01-02"),
			fmt.Sprintf("%.0f", t.Strike),
			string(t.Type),
			fmt.Sprintf("%d", t.Quantity),
			fmt.Sprintf("%.2f", t.EntryPremium),
			fmt.Sprintf("%.2f", t.ExitPremium),
			output.FormatPnL(t.PnL),
			output.FormatPercent(t.ReturnPct),
			fmt.Sprintf("%d", t.HoldingDays),
		)
	}
	table.Render()
}
