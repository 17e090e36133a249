package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"option-backtester/internal/config"
	"option-backtester/internal/logging"
	"option-backtester/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.ResultStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	resultStore, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, runs will not be saved")
	} else {
		app.Store = resultStore
		logger.Debug().Str("path", cfg.Storage.DatabasePath).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "backtester",
		Short: "Option Backtester - historical option strategy simulation CLI",
		Long: `Option Backtester replays historical option chain snapshots through a
trading strategy and reports the resulting equity curve and statistics.

Datasets are CSV files of timestamped spot and chain data. Strategies
are built in (hold, momentum, pcr) and configurable via flags or
~/.config/option-backtester/config.toml.

Use 'backtester help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/option-backtester)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Option Backtester v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Backtest Defaults")
	output.Printf("  Initial Capital:  %.2f\n", cfg.Backtest.InitialCapital)
	output.Printf("  Default Quantity: %d\n", cfg.Backtest.DefaultQuantity)
	output.Printf("  Default Expiry:   %d days\n", cfg.Backtest.DefaultExpiryDays)
	output.Println()

	output.Bold("Strategy Defaults")
	output.Printf("  Strike Step:        %.0f\n", cfg.Strategy.StrikeStep)
	output.Printf("  Premium %%:          %.2f\n", cfg.Strategy.PremiumPct)
	output.Printf("  Momentum Threshold: %.2f%%\n", cfg.Strategy.MomentumThreshold)
	output.Printf("  PCR Bullish:        %.2f\n", cfg.Strategy.PCRBullish)
	output.Printf("  PCR Bearish:        %.2f\n", cfg.Strategy.PCRBearish)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Database: %s\n", cfg.Storage.DatabasePath)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:   %s\n", cfg.Logging.Level)
	output.Printf("  Console: %v\n", cfg.Logging.Console)
	output.Printf("  File:    %v (%s)\n", cfg.Logging.File, cfg.Logging.FilePath)
}
