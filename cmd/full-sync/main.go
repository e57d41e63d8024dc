package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/chainrep/identity-engine/internal/adapter"
	"github.com/chainrep/identity-engine/internal/config"
	"github.com/chainrep/identity-engine/internal/ledger"
	"github.com/chainrep/identity-engine/internal/logger"
	"github.com/chainrep/identity-engine/internal/reconciler"
	"github.com/chainrep/identity-engine/internal/scanner"
	"github.com/chainrep/identity-engine/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

// full-sync runs one full ledger rescan and exits. Intended for cron and for
// manual drift repair; the long-running reconciler exposes the same operation
// over HTTP.
func main() {
	flag.Parse()

	cfg, err := config.LoadFullSyncConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "full-sync",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting full ledger sync")

	if err := cfg.Ledger.Validate(); err != nil {
		logger.FatalCtx(ctx, "Invalid ledger configuration", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.AutoMigrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	dataStore := store.NewPGStore(db)

	clockAdapter := adapter.NewClock()
	ethDialer := adapter.NewEthClientDialer()

	// Read calls work over either transport; a websocket-only config still syncs
	endpoint := cfg.Ledger.RPCURL
	if endpoint == "" {
		endpoint = cfg.Ledger.WebSocketURL
	}
	ethClient, err := ethDialer.Dial(ctx, endpoint)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial ledger node", zap.Error(err), zap.String("endpoint", endpoint))
	}
	ledgerClient := ledger.NewClient(cfg.Ledger.ContractAddress, ethClient, clockAdapter)
	defer ledgerClient.Close()

	rec := reconciler.New(dataStore, clockAdapter, reconciler.Config{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	})

	sc := scanner.New(ledgerClient, dataStore, rec, scanner.Config{
		MaxConsecutiveMisses: cfg.Scanner.MaxConsecutiveMisses,
		ProbeTimeout:         cfg.Scanner.ProbeTimeout,
		RepairConcurrency:    cfg.Scanner.RepairConcurrency,
	})

	summary, err := sc.ScanAll(ctx)
	if err != nil {
		logger.FatalCtx(ctx, "Full sync failed", zap.Error(err))
	}

	logger.InfoCtx(ctx, "Full sync complete",
		zap.Int("fixed", summary.Fixed),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("errors", summary.Errors),
	)

	if summary.Errors > 0 {
		os.Exit(1)
	}
}
