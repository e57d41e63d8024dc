package schema

import "time"

// PriceHistory is the append-only price trail for an identity token
type PriceHistory struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TokenID references identities.token_id
	TokenID       uint64  `gorm:"column:token_id;not null;index:idx_price_history_token_time,priority:1"`
	OldPrice      float64 `gorm:"column:old_price;not null"`
	NewPrice      float64 `gorm:"column:new_price;not null"`
	ChangePercent float64 `gorm:"column:change_percent;not null"`
	Reason        string  `gorm:"column:reason;type:text"`
	TxHash        string  `gorm:"column:tx_hash;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();index:idx_price_history_token_time,priority:2"`
}

// TableName specifies the table name for the PriceHistory model
func (PriceHistory) TableName() string {
	return "price_history"
}
