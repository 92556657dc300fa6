package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arbitrum-trade-bot-go/internal/chain"
	"arbitrum-trade-bot-go/internal/config"
	"arbitrum-trade-bot-go/internal/database"
	"arbitrum-trade-bot-go/internal/notify"
	"arbitrum-trade-bot-go/internal/oracle"
	"arbitrum-trade-bot-go/internal/report"
	"arbitrum-trade-bot-go/internal/state"
	"arbitrum-trade-bot-go/internal/tokens"
	"arbitrum-trade-bot-go/internal/trader"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runFlags struct {
	capital string
	reset   bool
	dryRun  bool
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one trading session",
		Long: `Run one trading session and print its summary as a JSON line.

The starting capital is --capital when given, the configured start capital
with --reset, and otherwise the persisted capital from the previous session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyRunFlags(cmd, &a.cfg, f)
			return runSession(cmd, a)
		},
	}
	cmd.Flags().StringVar(&f.capital, "capital", "", "starting capital override")
	cmd.Flags().BoolVar(&f.reset, "reset", false, "start from trading.start_capital and overwrite the persisted value")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "simulate swaps instead of sending transactions")
	return cmd
}

// applyRunFlags lets explicitly set flags win over file and environment.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, f *runFlags) {
	if cmd.Flags().Changed("capital") {
		cfg.Trading.CapitalOverride = f.capital
	}
	if cmd.Flags().Changed("reset") {
		cfg.Trading.Reset = f.reset
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.Trading.DryRun = f.dryRun
	}
}

func runSession(cmd *cobra.Command, a *app) error {
	cfg := a.cfg
	log := a.log
	if err := cfg.Validate(); err != nil {
		return err
	}

	registry, err := tokens.FromConfig(cfg.Tokens)
	if err != nil {
		return err
	}

	store := state.NewFileStore(cfg.Storage.CapitalFile)
	override, err := cfg.Trading.Override()
	if err != nil {
		return err
	}
	capital, source, err := state.ResolveStartingCapital(store, override, cfg.Trading.Reset, cfg.Trading.StartCapital)
	if err != nil {
		return err
	}
	log.Info("Starting capital resolved",
		zap.String("capital", capital.String()),
		zap.String("source", string(source)),
		zap.String("file", store.Path()),
	)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigchan)
		select {
		case <-sigchan:
			log.Info("Shutdown signal received, finishing the current trade...")
			cancel()
		case <-ctx.Done():
		}
	}()

	metrics := trader.NewMetrics()
	feed := oracle.NewCoinGeckoClient(&cfg.Oracle, log)
	prices := oracle.NewPriceOracle(feed, registry, oracle.RetryPolicy{
		MaxAttempts: cfg.Oracle.MaxAttempts,
		Delay:       cfg.Oracle.RetryDelay,
	}, log)
	prices.OnFallback(metrics.ObserveFallback)

	var executor chain.Executor
	if cfg.Trading.DryRun {
		log.Warn("Dry run enabled. No real transactions will be sent.")
		executor = chain.NewPaperExecutor(registry, cfg.Chain.MaxSlippageBps, log)
	} else {
		exec, closeClient, err := chain.Dial(ctx, cfg.Chain, registry, log)
		if err != nil {
			return err
		}
		defer closeClient()
		executor = exec
	}

	var journal trader.Journal = database.NopJournal{}
	if cfg.Database.DSN != "" {
		db, err := database.NewDatabase(cfg.Database.DSN)
		if err != nil {
			log.Warn("Trade journal unavailable, continuing without it", zap.Error(err))
		} else {
			journal = database.NewGormJournal(db)
			log.Info("Database connection successful and schema migrated.")
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	outcomes, err := trader.NewOutcomeSource(cfg.Trading.Outcome, cfg.Trading.WinProbability, prices, rng)
	if err != nil {
		return err
	}

	engine, err := trader.NewEngine(log, cfg.Trading, trader.Dependencies{
		Prices:     prices,
		Executor:   executor,
		Outcomes:   outcomes,
		Store:      store,
		Symbols:    registry.Tradeable(),
		BaseSymbol: registry.Base().Symbol,
		Notifier:   notify.New(cfg.Telegram, log),
		Journal:    journal,
		Metrics:    metrics,
		Rand:       rng,
	})
	if err != nil {
		return err
	}

	if cfg.Trading.ApiPort > 0 {
		api := trader.NewAPIServer(engine, log)
		api.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := api.Stop(shutdownCtx); err != nil {
				log.Warn("API server shutdown failed", zap.Error(err))
			}
		}()
	}

	res, runErr := engine.Run(ctx, capital)

	summary := report.FromResult(res, runErr)
	if err := report.WriteJSON(cmd.OutOrStdout(), summary); err != nil {
		log.Error("Failed to write summary", zap.Error(err))
	}
	if err := report.AppendStepOutput(cfg.Output.StepOutputFile, summary); err != nil {
		log.Error("Failed to write step output", zap.Error(err))
	}
	return runErr
}
