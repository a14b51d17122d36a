package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Persistent flags shared by every subcommand
var (
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	logFile    string
	noColor    bool
)

// rootCmd is the base command of the backtester CLI
var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Regime-aware signal backtester",
	Long: `Backtest long-only trading signals on historical OHLCV data.

Signals observed on one bar execute at the next bar's open with slippage and
commission. Position size follows a fixed-fractional ATR stop, and the market
regime (bull, bear or neutral) can select which strategy is active.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(envFile); err != nil && cmd.Flags().Changed("env") {
			return err
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON config file")
	flags.StringVar(&envFile, "env", ".env", "Environment file path")
	flags.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "Log format: console or json")
	flags.StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored log output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEnvFile loads environment variables from envFile when it exists
func loadEnvFile(envFile string) error {
	if _, err := os.Stat(envFile); err == nil {
		return godotenv.Load(envFile)
	}
	return fmt.Errorf("env file %s not found", envFile)
}
