package models

import (
	"time"

	"gorm.io/gorm"
)

// UserStats tracks gamified aggregates for each user (denormalized for performance).
// Mutated only inside the completion finalizer's transaction so the common
// round-advance path never contends on this row.
type UserStats struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	// Core progression
	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`

	// PVP battle counters
	BattleCount int64 `json:"battle_count" gorm:"default:0"`
	BattleWins  int64 `json:"battle_wins" gorm:"default:0"`

	// Adventure counters
	MonstersDefeated int64 `json:"monsters_defeated" gorm:"default:0"`
	MonstersEscaped  int64 `json:"monsters_escaped" gorm:"default:0"`

	// defeats - escapes, floored at 0
	AdventureRating int64 `json:"adventure_rating" gorm:"default:0"`

	// Highest monster tier ever defeated. Only moves up.
	HighestTierDefeated int `json:"highest_tier_defeated" gorm:"default:0"`

	// Back-references to the matches currently in play. Cleared by the
	// finalizer in the same transaction that closes the match.
	CurrentBattleID    *string `gorm:"type:uuid;index" json:"current_battle_id,omitempty"`
	CurrentAdventureID *string `gorm:"type:uuid;index" json:"current_adventure_id,omitempty"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
