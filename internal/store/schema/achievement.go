package schema

import "time"

// Achievement is the append-only achievement history for an identity token
type Achievement struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TokenID references identities.token_id
	TokenID uint64 `gorm:"column:token_id;not null;index:idx_achievements_token_time,priority:1"`
	Title   string `gorm:"column:title;not null;type:text"`
	Points  int64  `gorm:"column:points;not null;default:0"`
	TxHash  string `gorm:"column:tx_hash;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();index:idx_achievements_token_time,priority:2"`
}

// TableName specifies the table name for the Achievement model
func (Achievement) TableName() string {
	return "achievement_history"
}
