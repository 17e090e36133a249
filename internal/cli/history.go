package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "option-backtester/internal/errors"
	"option-backtester/internal/store"
	"option-backtester/pkg/utils"
)

func newHistoryCmd(app *App) *cobra.Command {
	var (
		stratFilter string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved backtest runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return apperrors.NewStoreError("history", "store unavailable", nil)
			}

			runs, err := app.Store.GetRuns(context.Background(), store.RunFilter{
				Strategy: stratFilter,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(runs)
			}

			if len(runs) == 0 {
				output.Dim("No saved runs")
				return nil
			}

			table := NewTable(output, "RUN ID", "DATE", "STRATEGY", "DATASET", "TRADES", "WIN RATE", "P&L", "SHARPE")
			for _, run := range runs {
				table.AddRow(
					run.ID,
					run.CreatedAt.Format("2006-01-02 15:04"),
					run.Strategy,
					run.DatasetPath,
					fmt.Sprintf("%d", run.TotalTrades),
					utils.FormatFraction(run.WinRate),
					output.FormatPnL(run.TotalPnL),
					utils.FormatSharpe(run.SharpeRatio),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&stratFilter, "strategy", "", "filter by strategy name")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to show")

	return cmd
}

func newTradesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "trades <run-id>",
		Short: "Show the trade log of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return apperrors.NewStoreError("trades", "store unavailable", nil)
			}

			ctx := context.Background()
			run, err := app.Store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			trades, err := app.Store.GetTrades(ctx, run.ID)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"run":    run,
					"trades": trades,
				})
			}

			output.Bold("Run %s", run.ID)
			output.Printf("  %s on %s, %d trades, P&L %s\n", run.Strategy, run.DatasetPath, run.TotalTrades, utils.FormatPnL(run.TotalPnL))
			output.Println()
			displayTrades(output, trades)
			return nil
		},
	}
}
