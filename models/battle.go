package models

import (
	"time"
)

const (
	BattleStatusPending   = "pending"
	BattleStatusActive    = "active"
	BattleStatusCompleted = "completed"
	BattleStatusDeclined  = "declined"
)

const (
	MinMatchDuration = 3
	MaxMatchDuration = 7
)

// Battle is a PVP match between two users. Actor1 is always the challenger.
// Each calendar day from StartDate is one round; a round is scored only once
// the day has fully passed in BOTH participants' timezones.
type Battle struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Actor1ID string `gorm:"type:uuid;index;not null" json:"actor1_id"`
	Actor2ID string `gorm:"type:uuid;index;not null" json:"actor2_id"`

	Status string `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`

	// Set when the invite is accepted. Day-granularity.
	StartDate *time.Time `json:"start_date,omitempty"`
	Duration  int        `gorm:"not null;check:duration >= 3 AND duration <= 7" json:"duration"`

	// Number of rounds already closed; also the index of the next round date.
	CurrentRound int `gorm:"not null;default:0" json:"current_round"`

	// Independent per-side totals. PVP is score-based, not HP-based.
	Actor1XP int `gorm:"not null;default:0" json:"actor1_xp"`
	Actor2XP int `gorm:"not null;default:0" json:"actor2_xp"`

	WinnerID *string `gorm:"type:uuid" json:"winner_id,omitempty"`
	IsDraw   bool    `gorm:"default:false" json:"is_draw"`

	Actor1Reward float64 `gorm:"default:0" json:"actor1_reward"`
	Actor2Reward float64 `gorm:"default:0" json:"actor2_reward"`

	// Idempotency marker. NULL = not finalized; once set, finalize calls
	// return the stored outcome unchanged.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}

// IsParticipant reports whether the given external user ID is one of the two actors.
func (b *Battle) IsParticipant(externalUserID string) bool {
	return b.Actor1ID == externalUserID || b.Actor2ID == externalUserID
}

// Opponent returns the other side's external user ID.
func (b *Battle) Opponent(externalUserID string) string {
	if b.Actor1ID == externalUserID {
		return b.Actor2ID
	}
	return b.Actor1ID
}
