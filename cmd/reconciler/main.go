package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/chainrep/identity-engine/internal/adapter"
	"github.com/chainrep/identity-engine/internal/api/server"
	"github.com/chainrep/identity-engine/internal/config"
	"github.com/chainrep/identity-engine/internal/engine"
	"github.com/chainrep/identity-engine/internal/health"
	"github.com/chainrep/identity-engine/internal/logger"
	"github.com/chainrep/identity-engine/internal/notify"
	"github.com/chainrep/identity-engine/internal/reconciler"
	"github.com/chainrep/identity-engine/internal/scanner"
	"github.com/chainrep/identity-engine/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadReconcilerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "reconciler",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting identity reconciler")

	// Configuration problems that readiness depends on are sticky: the process
	// keeps serving /health reporting them rather than crash-looping
	configValid := cfg.Ledger.ValidateSubscriber() == nil
	monitor := health.NewMonitor(configValid)
	if !configValid {
		logger.ErrorCtx(ctx, cfg.Ledger.ValidateSubscriber(),
			zap.String("message", "Ledger configuration is invalid; engine will never become ready"))
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.AutoMigrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
		cfg.Database.ConnMaxIdleTime,
	); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database")

	dataStore := store.NewPGStore(db)

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	natsJS := adapter.NewNatsJetStream()
	ethDialer := adapter.NewEthClientDialer()

	// Initialize NATS publisher; outcomes are best-effort, so a missing broker
	// URL just disables publishing
	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.NATS.URL != "" {
		publisher, err = notify.NewJetStreamPublisher(notify.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, natsJS, jsonAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		logger.InfoCtx(ctx, "Connected to NATS JetStream")
	}
	defer publisher.Close()

	rec := reconciler.New(dataStore, clockAdapter, reconciler.Config{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	})

	eng := engine.New(engine.Options{
		LedgerConfig: cfg.Ledger,
		ScannerConfig: scanner.Config{
			MaxConsecutiveMisses: cfg.Scanner.MaxConsecutiveMisses,
			ProbeTimeout:         cfg.Scanner.ProbeTimeout,
			RepairConcurrency:    cfg.Scanner.RepairConcurrency,
		},
		Dialer:     ethDialer,
		Clock:      clockAdapter,
		Monitor:    monitor,
		Store:      dataStore,
		Reconciler: rec,
		Publisher:  publisher,
	})
	defer eng.Stop()

	// Start ingestion when the configuration permits it. Failure is logged and
	// reflected in /health; operators recover via POST /api/v1/reinitialize.
	if configValid {
		if err := eng.Start(ctx); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to start ledger ingestion"))
		}
	}

	// Start API server
	apiServer := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		APIKeys:      cfg.Server.APIKeys,
	}, eng)

	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("message", "API server failed"))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("message", "Failed to shutdown API server"))
	}
}
