package main

import (
	"fmt"

	"arbitrum-trade-bot-go/internal/config"
	"arbitrum-trade-bot-go/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	configDir string
	cfg       config.Config
	log       *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Daily token-swap trading session on Arbitrum",
		Long: `trader runs one bounded trading session: it buys tokens from the
allow-list with a fraction of the running capital through a Uniswap V3
router, books each trade as a take-profit or stop-loss, and stops once the
daily goal or the trade cap is reached.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.configDir)
			if err != nil {
				return fmt.Errorf("could not load config: %w", err)
			}
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Logger.Level = "debug"
			}
			log, err := logger.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.cfg = cfg
			a.log = log
			log.Debug("Configuration loaded", zap.String("dir", a.configDir))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configDir, "config", "./configs", "directory containing config.yml")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newCapitalCmd(a))
	rootCmd.AddCommand(newResetCmd(a))
	return rootCmd
}
