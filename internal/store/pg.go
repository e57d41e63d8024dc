package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chainrep/identity-engine/internal/domain"
	"github.com/chainrep/identity-engine/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// AutoMigrate creates or updates the engine's tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Identity{},
		&schema.PriceHistory{},
		&schema.GoalProgress{},
		&schema.Achievement{},
		&schema.Transfer{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to conservative defaults.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// GetIdentityByTokenID retrieves an identity by its ledger token ID
func (s *pgStore) GetIdentityByTokenID(ctx context.Context, tokenID uint64) (*schema.Identity, error) {
	var identity schema.Identity
	err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get identity by token id: %w", err)
	}
	return &identity, nil
}

// GetIdentityByOwner retrieves an identity by its normalized owner address
func (s *pgStore) GetIdentityByOwner(ctx context.Context, ownerAddress string) (*schema.Identity, error) {
	var identity schema.Identity
	err := s.db.WithContext(ctx).Where("owner_address = ?", domain.NormalizeAddress(ownerAddress)).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get identity by owner: %w", err)
	}
	return &identity, nil
}

// CreateIdentity inserts a new identity row
func (s *pgStore) CreateIdentity(ctx context.Context, identity *schema.Identity) error {
	err := s.db.WithContext(ctx).Create(identity).Error
	if err != nil {
		if isUniqueViolation(err, "username") {
			return fmt.Errorf("%w: %q", domain.ErrUsernameTaken, identity.Username)
		}
		if isUniqueViolation(err, "owner_address") {
			return fmt.Errorf("%w: %q", domain.ErrOwnerTaken, identity.OwnerAddress)
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

// UpdateIdentityFields applies a field-level update to one identity row
func (s *pgStore) UpdateIdentityFields(ctx context.Context, tokenID uint64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Model(&schema.Identity{}).
		Where("token_id = ?", tokenID).
		Updates(fields).Error
	if err != nil {
		if isUniqueViolation(err, "username") {
			return fmt.Errorf("%w", domain.ErrUsernameTaken)
		}
		return fmt.Errorf("failed to update identity fields: %w", err)
	}
	return nil
}

// CountIdentities returns the number of stored identities
func (s *pgStore) CountIdentities(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&schema.Identity{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count identities: %w", err)
	}
	return count, nil
}

// ListIdentities pages through stored identities ordered by token ID
func (s *pgStore) ListIdentities(ctx context.Context, limit int, offset int) ([]schema.Identity, error) {
	var identities []schema.Identity
	err := s.db.WithContext(ctx).
		Order("token_id ASC").
		Limit(limit).
		Offset(offset).
		Find(&identities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	return identities, nil
}

// AppendPriceHistory appends one price trail entry
func (s *pgStore) AppendPriceHistory(ctx context.Context, entry *schema.PriceHistory) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append price history: %w", err)
	}
	return nil
}

// UpsertGoalOutcome records a goal completion or failure for (tokenID, goalIndex).
// The conflict update only fires when the stored row records a different
// outcome, so a redelivered event reports false.
func (s *pgStore) UpsertGoalOutcome(ctx context.Context, goal *schema.GoalProgress) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token_id"}, {Name: "goal_index"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"completed", "failed", "reward_points", "tx_hash", "completed_at", "failed_at", "updated_at",
		}),
		Where: clause.Where{Exprs: []clause.Expression{clause.Expr{
			SQL: "goal_progress.completed IS DISTINCT FROM excluded.completed" +
				" OR goal_progress.failed IS DISTINCT FROM excluded.failed" +
				" OR goal_progress.tx_hash IS DISTINCT FROM excluded.tx_hash",
		}}},
	}).Create(goal)
	if res.Error != nil {
		return false, fmt.Errorf("failed to upsert goal outcome: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AppendAchievement appends one achievement history entry
func (s *pgStore) AppendAchievement(ctx context.Context, entry *schema.Achievement) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append achievement: %w", err)
	}
	return nil
}

// RecordTransfer appends a transfer row, skipping duplicate (tx_hash, token_id) deliveries
func (s *pgStore) RecordTransfer(ctx context.Context, transfer *schema.Transfer) (bool, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}, {Name: "token_id"}},
		DoNothing: true,
	}).Clauses(clause.Returning{Columns: []clause.Column{}}).
		Create(transfer).Error
	if err != nil {
		return false, fmt.Errorf("failed to record transfer: %w", err)
	}

	// ID stays 0 when the insert hit the conflict clause
	return transfer.ID != 0, nil
}

// isUniqueViolation reports whether err is a uniqueness violation touching the
// given column. Relies on gorm's duplicated-key translation plus the constraint
// name Postgres includes in the message.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) && !strings.Contains(err.Error(), "duplicate key") {
		return false
	}
	return strings.Contains(err.Error(), column)
}
