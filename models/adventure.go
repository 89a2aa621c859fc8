package models

import (
	"time"
)

const (
	AdventureStatusActive    = "active"
	AdventureStatusCompleted = "completed"
	AdventureStatusEscaped   = "escaped"
)

const MaxBreakDays = 2

// Adventure is a solo match against a monster. One round per calendar day in
// the owner's timezone; the monster escapes when the deadline passes with HP
// left.
type Adventure struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;index;not null" json:"user_id"`

	MonsterID string `gorm:"type:uuid;index;not null" json:"monster_id"`
	// Denormalized so finished adventures stay readable if the catalog changes.
	MonsterName string `gorm:"not null" json:"monster_name"`
	MonsterType string `gorm:"type:varchar(32);not null" json:"monster_type"`
	MonsterTier int    `gorm:"not null" json:"monster_tier"`

	MonsterMaxHP     int `gorm:"not null" json:"monster_max_hp"`
	MonsterCurrentHP int `gorm:"not null" json:"monster_current_hp"`

	Status string `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`

	StartDate time.Time `gorm:"not null" json:"start_date"`
	// Last scoreable day. Extended by one for every break taken.
	Deadline time.Time `gorm:"not null" json:"deadline"`
	Duration int       `gorm:"not null;check:duration >= 3 AND duration <= 7" json:"duration"`

	CurrentRound     int `gorm:"not null;default:0" json:"current_round"`
	TotalDamageDealt int `gorm:"not null;default:0" json:"total_damage_dealt"`

	// Break state. While on an unexpired break the advancer does not process
	// rounds for this adventure.
	IsOnBreak     bool       `gorm:"default:false" json:"is_on_break"`
	BreakEndDate  *time.Time `json:"break_end_date,omitempty"`
	BreakDaysUsed int        `gorm:"not null;default:0" json:"break_days_used"`

	Outcome string  `gorm:"type:varchar(16)" json:"outcome,omitempty"` // victory | escape | abandoned
	Reward  float64 `gorm:"default:0" json:"reward"`

	// Idempotency marker, same contract as Battle.CompletedAt.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}

const (
	AdventureOutcomeVictory   = "victory"
	AdventureOutcomeEscape    = "escape"
	AdventureOutcomeAbandoned = "abandoned"
)
