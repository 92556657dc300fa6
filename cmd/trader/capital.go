package main

import (
	"fmt"

	"arbitrum-trade-bot-go/internal/state"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCapitalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "capital",
		Short: "Print the persisted capital",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := state.NewFileStore(a.cfg.Storage.CapitalFile)
			capital, found, err := store.Load()
			if err != nil {
				return err
			}
			if !found {
				a.log.Info("No persisted capital, the configured start capital applies",
					zap.String("file", store.Path()))
				capital = a.cfg.Trading.StartCapital
			}
			fmt.Fprintln(cmd.OutOrStdout(), capital.String())
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Overwrite the persisted capital with trading.start_capital",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := a.cfg.Trading.StartCapital
			if !start.IsPositive() {
				return fmt.Errorf("trading.start_capital must be positive, got %s", start)
			}
			store := state.NewFileStore(a.cfg.Storage.CapitalFile)
			if err := store.Reset(start); err != nil {
				return err
			}
			a.log.Info("Capital reset", zap.String("capital", start.String()), zap.String("file", store.Path()))
			fmt.Fprintln(cmd.OutOrStdout(), start.String())
			return nil
		},
	}
}
