package models

import (
	"time"
)

const (
	MatchTypeBattle    = "battle"
	MatchTypeAdventure = "adventure"
)

// MatchRound records one actor's score for one closed day of a match. The
// unique index is the at-most-once guard for round scoring: a concurrent
// advancer that lost the race cannot insert the same round twice.
type MatchRound struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	MatchType      string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_match_round_once" json:"match_type"`
	MatchID        string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_match_round_once" json:"match_id"`
	ExternalUserID string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_match_round_once" json:"external_user_id"`
	RoundIndex     int       `gorm:"not null;uniqueIndex:idx_match_round_once" json:"round_index"`
	RoundDate      time.Time `gorm:"not null" json:"round_date"`

	// Damage dealt (Adventure) or XP scored (PVP) for the day.
	Damage int `gorm:"not null" json:"damage"`

	// How many mandatory tasks were completed out of the day's quota.
	MandatoryDone  int `gorm:"not null;default:0" json:"mandatory_done"`
	MandatoryQuota int `gorm:"not null;default:0" json:"mandatory_quota"`
	OptionalDone   int `gorm:"not null;default:0" json:"optional_done"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
