package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Identity represents the identities table - one row per minted reputation token.
//
// Column ownership is split: ledger-derived columns (token_id, owner_address,
// reputation_score, skill_level, achievement_count, verified, primary_skill,
// last_ledger_update) are written only by reconciliation; profile is written only
// by off-chain actors; current_price and username are hybrid (see domain.FieldOwners).
type Identity struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TokenID is the ledger-assigned token identifier, immutable once minted
	TokenID uint64 `gorm:"column:token_id;not null;uniqueIndex"`
	// OwnerAddress is the lowercase-normalized controlling address
	OwnerAddress string `gorm:"column:owner_address;not null;uniqueIndex;type:text"`
	// Username is globally unique; mutable only by the owner or collision resolution
	Username string `gorm:"column:username;not null;uniqueIndex;type:text"`
	// ReputationScore mirrors the contract's score for this identity
	ReputationScore int64 `gorm:"column:reputation_score;not null;default:0"`
	// SkillLevel mirrors the contract's skill level
	SkillLevel int `gorm:"column:skill_level;not null;default:0"`
	// AchievementCount mirrors the contract's achievement counter
	AchievementCount int `gorm:"column:achievement_count;not null;default:0"`
	// Verified is set once the identity is confirmed minted on-chain
	Verified bool `gorm:"column:verified;not null;default:false"`
	// PrimarySkill mirrors the contract's primary skill label
	PrimarySkill string `gorm:"column:primary_skill;type:text"`
	// CurrentPrice is seeded from the ledger and advanced by off-chain business events
	CurrentPrice float64 `gorm:"column:current_price;not null;default:0"`
	// OriginalOwner is true while the identity is still held by its creator.
	// Secondary-market sales of tokenized stakes do not clear it.
	OriginalOwner bool `gorm:"column:original_owner;not null;default:true"`
	// LastLedgerUpdate is the contract's logical last-update timestamp, the
	// ordering key for conflict resolution between concurrent writers
	LastLedgerUpdate uint64 `gorm:"column:last_ledger_update;not null;default:0"`
	// TxHash is the transaction that last touched the ledger-derived columns
	TxHash string `gorm:"column:tx_hash;type:text"`
	// Profile holds the off-chain-only document (bio, skills, social links).
	// Reconciliation seeds it with an empty well-formed shape and never rewrites it.
	Profile datatypes.JSON `gorm:"column:profile;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`

	// Associations
	PriceHistory []PriceHistory `gorm:"foreignKey:TokenID;references:TokenID;constraint:OnDelete:CASCADE"`
	Goals        []GoalProgress `gorm:"foreignKey:TokenID;references:TokenID;constraint:OnDelete:CASCADE"`
	Achievements []Achievement  `gorm:"foreignKey:TokenID;references:TokenID;constraint:OnDelete:CASCADE"`
	Transfers    []Transfer     `gorm:"foreignKey:TokenID;references:TokenID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Identity model
func (Identity) TableName() string {
	return "identities"
}

// EmptyProfile returns the well-formed empty profile document seeded at insert,
// so downstream readers never branch on missing shape.
func EmptyProfile() datatypes.JSON {
	return datatypes.JSON(`{"bio":"","skills":[],"social_links":{}}`)
}
