package store

import (
	"context"

	"github.com/chainrep/identity-engine/internal/store/schema"
)

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// GetIdentityByTokenID retrieves an identity by its ledger token ID (nil if absent)
	GetIdentityByTokenID(ctx context.Context, tokenID uint64) (*schema.Identity, error)
	// GetIdentityByOwner retrieves an identity by its normalized owner address (nil if absent)
	GetIdentityByOwner(ctx context.Context, ownerAddress string) (*schema.Identity, error)
	// CreateIdentity inserts a new identity row. A username uniqueness violation
	// is reported as domain.ErrUsernameTaken so callers can retry with a new
	// candidate; an owner uniqueness violation as domain.ErrOwnerTaken, which
	// callers must not retry.
	CreateIdentity(ctx context.Context, identity *schema.Identity) error
	// UpdateIdentityFields applies a field-level update to one identity row.
	// Whole-row replacement is deliberately not offered: concurrent off-chain
	// profile writes must never be lost to a reconciliation write.
	UpdateIdentityFields(ctx context.Context, tokenID uint64, fields map[string]interface{}) error
	// CountIdentities returns the number of stored identities
	CountIdentities(ctx context.Context) (int64, error)
	// ListIdentities pages through stored identities ordered by token ID
	ListIdentities(ctx context.Context, limit int, offset int) ([]schema.Identity, error)

	// AppendPriceHistory appends one price trail entry
	AppendPriceHistory(ctx context.Context, entry *schema.PriceHistory) error
	// UpsertGoalOutcome records a goal completion or failure for (tokenID, goalIndex),
	// creating the goal row if off-chain setup never did. The bool reports whether
	// the stored outcome changed; a redelivered event reports false.
	UpsertGoalOutcome(ctx context.Context, goal *schema.GoalProgress) (bool, error)
	// AppendAchievement appends one achievement history entry
	AppendAchievement(ctx context.Context, entry *schema.Achievement) error
	// RecordTransfer appends a transfer row. Duplicate deliveries of the same
	// (tx_hash, token_id) are skipped; the bool reports whether a row was written.
	RecordTransfer(ctx context.Context, transfer *schema.Transfer) (bool, error)
}
