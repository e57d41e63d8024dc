package notify

import (
	"context"

	"github.com/chainrep/identity-engine/internal/reconciler"
)

// Publisher defines the interface for emitting reconciliation outcomes to a
// message broker so downstream consumers can react to profile changes
//
//go:generate mockgen -source=notify.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishOutcome publishes one applied (or skipped) reconciliation outcome
	PublishOutcome(ctx context.Context, outcome *reconciler.Outcome) error
	// Close closes the connection
	Close()
}

// NopPublisher discards outcomes. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOutcome(_ context.Context, _ *reconciler.Outcome) error { return nil }
func (NopPublisher) Close()                                                        {}
