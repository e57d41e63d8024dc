package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chainrep/identity-engine/internal/adapter"
	"github.com/chainrep/identity-engine/internal/config"
	"github.com/chainrep/identity-engine/internal/domain"
	"github.com/chainrep/identity-engine/internal/health"
	"github.com/chainrep/identity-engine/internal/ingest"
	"github.com/chainrep/identity-engine/internal/ledger"
	"github.com/chainrep/identity-engine/internal/logger"
	"github.com/chainrep/identity-engine/internal/notify"
	"github.com/chainrep/identity-engine/internal/reconciler"
	"github.com/chainrep/identity-engine/internal/scanner"
	"github.com/chainrep/identity-engine/internal/store"
)

// Engine owns the ledger client handle and the ingestion loop lifecycle, and
// exposes the operations the HTTP API serves. All state lives on the struct;
// callers construct one engine per process.
type Engine struct {
	ledgerCfg  config.LedgerConfig
	scannerCfg scanner.Config

	dialer     adapter.EthClientDialer
	clock      adapter.Clock
	monitor    *health.Monitor
	store      store.Store
	reconciler reconciler.Reconciler
	publisher  notify.Publisher

	mu         sync.Mutex
	client     ledger.Client
	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// Options gathers the engine's collaborators
type Options struct {
	LedgerConfig  config.LedgerConfig
	ScannerConfig scanner.Config
	Dialer        adapter.EthClientDialer
	Clock         adapter.Clock
	Monitor       *health.Monitor
	Store         store.Store
	Reconciler    reconciler.Reconciler
	Publisher     notify.Publisher
}

// New creates an engine. Call Start to dial the ledger and begin ingesting.
func New(opts Options) *Engine {
	publisher := opts.Publisher
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &Engine{
		ledgerCfg:  opts.LedgerConfig,
		scannerCfg: opts.ScannerConfig,
		dialer:     opts.Dialer,
		clock:      opts.Clock,
		monitor:    opts.Monitor,
		store:      opts.Store,
		reconciler: opts.Reconciler,
		publisher:  publisher,
	}
}

// Start dials the ledger, verifies connectivity, and launches the ingestion
// loop. Dial or probe failure leaves the engine not ready but does not abort
// the process; Reinitialize can recover later.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked(ctx)
}

func (e *Engine) startLocked(ctx context.Context) error {
	eth, err := e.dialer.Dial(ctx, e.ledgerCfg.WebSocketURL)
	if err != nil {
		e.monitor.SetInitialized(false)
		e.monitor.SetClientAttached(false)
		return fmt.Errorf("failed to dial ledger node: %w", err)
	}

	client := ledger.NewClient(e.ledgerCfg.ContractAddress, eth, e.clock)

	probeCtx, cancel := context.WithTimeout(ctx, e.ledgerCfg.CallTimeout)
	total, err := client.TotalIdentities(probeCtx)
	cancel()
	if err != nil {
		client.Close()
		e.monitor.SetInitialized(false)
		e.monitor.SetClientAttached(false)
		return fmt.Errorf("ledger connectivity probe failed: %w", err)
	}

	e.client = client
	e.monitor.SetInitialized(true)
	e.monitor.SetClientAttached(true)

	logger.InfoCtx(ctx, "Ledger client attached",
		zap.String("contract", e.ledgerCfg.ContractAddress),
		zap.Uint64("total_identities", total),
	)

	loop := ingest.NewLoop(client, e.monitor, e.clock)
	loop.RegisterAll(e.handleEvent)

	loopCtx, loopCancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.loopCancel = loopCancel
	e.loopDone = done

	go func() {
		defer close(done)
		if err := loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(err, zap.String("message", "Ingestion loop exited"))
			e.monitor.SetDegraded(true)
		}
	}()

	return nil
}

// handleEvent applies one ledger event and emits its outcome. Publish failures
// are logged, not returned: the store write already succeeded and must not be
// retried for the sake of the broker.
func (e *Engine) handleEvent(ctx context.Context, event *domain.IdentityEvent) error {
	outcome, err := e.reconciler.Apply(ctx, event)
	if err != nil {
		return err
	}

	if err := e.publisher.PublishOutcome(ctx, outcome); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("message", "Failed to publish outcome"),
			zap.String("kind", string(outcome.Kind)),
			zap.Uint64("token_id", outcome.TokenID),
		)
	}

	return nil
}

// Status returns the current health snapshot
func (e *Engine) Status() health.Status {
	return e.monitor.Snapshot()
}

// Reinitialize tears down the subscription and client, re-dials, and restarts
// ingestion. Returns whether the engine came back ready.
func (e *Engine) Reinitialize(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()

	if err := e.startLocked(ctx); err != nil {
		return false, err
	}

	// A rebuilt subscription may have missed events while down
	e.monitor.RecommendResync(true)

	return e.monitor.Ready(), nil
}

// Stop shuts down the ingestion loop and closes the ledger client
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.loopCancel != nil {
		e.loopCancel()
		<-e.loopDone
		e.loopCancel = nil
		e.loopDone = nil
	}
	if e.client != nil {
		e.client.Close()
		e.client = nil
	}
	e.monitor.SetClientAttached(false)
	e.monitor.SetListenerCount(0)
}

// currentScanner builds a scanner over the currently attached client
func (e *Engine) currentScanner() (*scanner.Scanner, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil, domain.ErrNotReady
	}
	return scanner.New(e.client, e.store, e.reconciler, e.scannerCfg), nil
}

// VerifyAddressTokenID compares the store's token mapping for an address
// against the ledger's without writing anything
func (e *Engine) VerifyAddressTokenID(ctx context.Context, address string) (*scanner.VerifyResult, error) {
	sc, err := e.currentScanner()
	if err != nil {
		return nil, err
	}
	return sc.VerifyAddress(ctx, address)
}

// FixAddressTokenID repairs one address's record to match the ledger.
// Rejected with domain.ErrNotReady unless the engine is fully ready.
func (e *Engine) FixAddressTokenID(ctx context.Context, address string) (bool, error) {
	if !e.monitor.Ready() {
		return false, domain.ErrNotReady
	}
	sc, err := e.currentScanner()
	if err != nil {
		return false, err
	}
	return sc.FixAddress(ctx, address)
}

// SyncAllIdentities runs a full ledger rescan and repair. Rejected with
// domain.ErrNotReady unless the engine is fully ready. A completed run clears
// the resync recommendation.
func (e *Engine) SyncAllIdentities(ctx context.Context) (*scanner.Summary, error) {
	if !e.monitor.Ready() {
		return nil, domain.ErrNotReady
	}
	sc, err := e.currentScanner()
	if err != nil {
		return nil, err
	}

	summary, err := sc.ScanAll(ctx)
	if err != nil {
		return nil, err
	}

	e.monitor.RecommendResync(false)

	logger.InfoCtx(ctx, "Full sync complete",
		zap.Int("fixed", summary.Fixed),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("errors", summary.Errors),
	)

	return summary, nil
}

// LedgerIdentity returns the ledger's authoritative snapshot for an address,
// or nil when the address holds no identity
func (e *Engine) LedgerIdentity(ctx context.Context, address string) (*domain.IdentitySnapshot, error) {
	e.mu.Lock()
	client := e.client
	e.mu.Unlock()
	if client == nil {
		return nil, domain.ErrNotReady
	}

	address = domain.NormalizeAddress(address)

	tokenID, err := client.TokenIDForAddress(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return client.GetIdentity(ctx, tokenID)
}
