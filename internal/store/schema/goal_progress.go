package schema

import "time"

// GoalProgress tracks one goal of an identity. Rows are created by off-chain
// actors when goals are set; reconciliation only flips completion/failure state.
type GoalProgress struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TokenID references identities.token_id
	TokenID uint64 `gorm:"column:token_id;not null;uniqueIndex:uk_goal_token_index,priority:1;index:idx_goals_token_time,priority:1"`
	// GoalIndex is the contract-side goal slot for this token
	GoalIndex    uint64 `gorm:"column:goal_index;not null;uniqueIndex:uk_goal_token_index,priority:2"`
	Description  string `gorm:"column:description;type:text"`
	Completed    bool   `gorm:"column:completed;not null;default:false"`
	Failed       bool   `gorm:"column:failed;not null;default:false"`
	RewardPoints int64  `gorm:"column:reward_points;not null;default:0"`
	TxHash       string `gorm:"column:tx_hash;type:text"`

	CompletedAt *time.Time `gorm:"column:completed_at"`
	FailedAt    *time.Time `gorm:"column:failed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;default:now();index:idx_goals_token_time,priority:2"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the GoalProgress model
func (GoalProgress) TableName() string {
	return "goal_progress"
}
