package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/chainrep/identity-engine/internal/adapter"
	"github.com/chainrep/identity-engine/internal/domain"
	"github.com/chainrep/identity-engine/internal/health"
	"github.com/chainrep/identity-engine/internal/ledger"
	"github.com/chainrep/identity-engine/internal/logger"
)

// Handler consumes one normalized ledger event
type Handler func(ctx context.Context, event *domain.IdentityEvent) error

// Loop owns the ledger log subscription for the lifetime of the process.
// Events are dispatched synchronously, which preserves per-token ordering;
// ordering across tokens is not guaranteed and handlers must not assume it.
type Loop struct {
	client   ledger.Client
	monitor  *health.Monitor
	clock    adapter.Clock
	handlers map[domain.EventKind]Handler
}

// NewLoop creates an ingestion loop. Handlers must be registered for every
// event kind before Run.
func NewLoop(client ledger.Client, monitor *health.Monitor, clock adapter.Clock) *Loop {
	return &Loop{
		client:   client,
		monitor:  monitor,
		clock:    clock,
		handlers: make(map[domain.EventKind]Handler),
	}
}

// Register installs the handler for one event kind
func (l *Loop) Register(kind domain.EventKind, handler Handler) {
	l.handlers[kind] = handler
}

// RegisterAll installs one handler for every event kind
func (l *Loop) RegisterAll(handler Handler) {
	for _, kind := range domain.EventKinds {
		l.Register(kind, handler)
	}
}

// Run blocks until ctx is cancelled, re-establishing the subscription after
// transport-level disconnects. A half-registered handler set fails fast: the
// loop must never run partially subscribed.
func (l *Loop) Run(ctx context.Context) error {
	for _, kind := range domain.EventKinds {
		if l.handlers[kind] == nil {
			l.monitor.SetListenerCount(len(l.handlers))
			return fmt.Errorf("%w: no handler registered for %s", domain.ErrSubscriptionFailed, kind)
		}
	}
	l.monitor.SetListenerCount(len(l.handlers))

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0 // reconnect forever

	for {
		err := l.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Events may have been missed during the gap; the loop does not
		// trigger a rescan itself, it only surfaces the recommendation.
		l.monitor.RecommendResync(true)

		wait := b.NextBackOff()
		logger.WarnCtx(ctx, "Ledger subscription dropped, reconnecting",
			zap.Error(err),
			zap.Duration("retry_in", wait),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(wait):
		}
	}
}

// consume runs one subscription session until it errors or ctx is cancelled
func (l *Loop) consume(ctx context.Context) error {
	logs := make(chan types.Log)
	sub, err := l.client.SubscribeLogs(ctx, logs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to ledger logs: %w", err)
	}
	defer sub.Unsubscribe()

	logger.InfoCtx(ctx, "Subscribed to ledger events", zap.Int("kinds", len(l.handlers)))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return fmt.Errorf("subscription error: %w", err)
		case vLog := <-logs:
			l.dispatch(ctx, vLog)
		}
	}
}

// dispatch parses and handles one raw log. Processing failures are recorded,
// not fatal: ledger streams deliver at-least-once and out-of-order across
// reconnects, and one bad event must not stop the stream.
func (l *Loop) dispatch(ctx context.Context, vLog types.Log) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("panic handling ledger log: %v", rec),
				zap.String("tx_hash", vLog.TxHash.Hex()),
			)
		}
	}()

	event, err := l.client.ParseEventLog(vLog)
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("message", "Error parsing ledger log"))
		return
	}
	if event == nil {
		return
	}

	handler := l.handlers[event.Kind]
	if handler == nil {
		logger.WarnCtx(ctx, "No handler for event kind", zap.String("kind", string(event.Kind)))
		return
	}

	if err := handler(ctx, event); err != nil {
		if errors.Is(err, domain.ErrInvalidEvent) {
			logger.WarnCtx(ctx, "Dropping malformed event",
				zap.Error(err),
				zap.String("event", event.String()),
			)
			return
		}

		// Retries are already exhausted by the time an error reaches here
		l.monitor.SetDegraded(true)
		logger.ErrorCtx(ctx, err, zap.String("message", "Error handling event"), zap.String("event", event.String()))
	}
}
