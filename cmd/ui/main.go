package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"arbitrum-trade-bot-go/internal/config"
	"arbitrum-trade-bot-go/internal/database"
	"arbitrum-trade-bot-go/internal/logger"
	"go.uber.org/zap"
)

func main() {
	configDir := "./configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	// Load configuration
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Database.DSN == "" {
		log.Fatal("database.dsn is empty, there is no journal to serve")
	}
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	mux := http.NewServeMux()
	NewAPIHandler(log, database.NewGormJournal(db)).Routes(mux)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("Starting web server", zap.String("address", server.Addr))

	if err := server.ListenAndServe(); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}
