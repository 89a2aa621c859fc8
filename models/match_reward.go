package models

import (
	"time"

	gorm "gorm.io/gorm"
)

// RewardCategory indicates what kind of match result produced the reward
type RewardCategory string

const (
	RewardCategoryVictory   RewardCategory = "victory"
	RewardCategoryEscape    RewardCategory = "escape"
	RewardCategoryBattleWin RewardCategory = "battle_win"
	RewardCategoryDraw      RewardCategory = "draw"
	RewardCategoryAbandoned RewardCategory = "abandoned"
)

// MatchReward is a coin reward written by the completion finalizer in the
// same transaction that closes the match. The wallet service settles claimed
// rows; until then the amount is display-only.
type MatchReward struct {
	ID             string         `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string         `gorm:"type:uuid;index;not null" json:"external_user_id"`
	MatchType      string         `gorm:"type:varchar(16);not null" json:"match_type"`
	MatchID        string         `gorm:"type:uuid;index;not null" json:"match_id"`
	Title          string         `gorm:"not null" json:"title"`
	Category       RewardCategory `gorm:"type:varchar(32);not null" json:"category"`
	Amount         float64        `json:"amount"`
	Claimed        bool           `gorm:"default:false" json:"claimed"`
	ClaimedAt      *time.Time     `json:"claimed_at,omitempty"`
	Viewed         bool           `gorm:"default:false;index" json:"viewed"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
