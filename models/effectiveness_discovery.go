package models

import (
	"time"
)

const (
	EffectivenessTierResisted       = "resisted"
	EffectivenessTierNeutral        = "neutral"
	EffectivenessTierSuperEffective = "super_effective"
)

// EffectivenessDiscovery marks the first time a user experienced a given
// effectiveness tier for a category against an actor type. Write-once:
// inserts use ON CONFLICT DO NOTHING, rows are never updated. Flavor only,
// the damage math never reads this table.
type EffectivenessDiscovery struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_discovery_once" json:"external_user_id"`
	ActorType      string `gorm:"type:varchar(32);not null;uniqueIndex:idx_discovery_once" json:"actor_type"`
	Category       string `gorm:"type:varchar(32);not null;uniqueIndex:idx_discovery_once" json:"category"`

	Tier       string  `gorm:"type:varchar(16);not null" json:"tier"`
	Multiplier float64 `gorm:"not null" json:"multiplier"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
