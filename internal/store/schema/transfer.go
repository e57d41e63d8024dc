package schema

import "time"

// Transfer records every purchase event for a token, whether or not it re-keyed
// the identity. Secondary-market stake sales produce a row with Rekeyed=false.
type Transfer struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TokenID references identities.token_id
	TokenID     uint64  `gorm:"column:token_id;not null;index:idx_transfers_token_time,priority:1;uniqueIndex:uk_transfers_tx_token,priority:2"`
	Buyer       string  `gorm:"column:buyer;not null;type:text"`
	Seller      string  `gorm:"column:seller;not null;type:text"`
	Price       float64 `gorm:"column:price;not null"`
	TxHash      string  `gorm:"column:tx_hash;not null;type:text;uniqueIndex:uk_transfers_tx_token,priority:1"`
	BlockNumber uint64  `gorm:"column:block_number;not null;default:0"`
	// Rekeyed is true when the transfer changed identities.owner_address
	Rekeyed bool `gorm:"column:rekeyed;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();index:idx_transfers_token_time,priority:2"`
}

// TableName specifies the table name for the Transfer model
func (Transfer) TableName() string {
	return "identity_transfers"
}
