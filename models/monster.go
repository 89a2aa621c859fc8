package models

import (
	"time"
)

// Monster is a catalog entry users can start adventures against. Seeded from
// the embedded catalog at boot and extendable via the admin import endpoint.
type Monster struct {
	ID   string `gorm:"primaryKey;type:uuid" json:"id"`
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	// Actor type for effectiveness lookups, e.g. "sloth", "chaos".
	ActorType string `gorm:"type:varchar(32);not null;index" json:"actor_type"`

	// 1..4. Higher tiers have more HP and better reward multipliers.
	Tier   int `gorm:"not null;check:tier >= 1 AND tier <= 4" json:"tier"`
	BaseHP int `gorm:"not null" json:"base_hp"`

	ArtURL      string `gorm:"type:text" json:"art_url"`
	Description string `gorm:"type:text" json:"description"`

	Published bool `gorm:"default:true;index" json:"published"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TierRewardMultiplier scales an adventure's reward by how hard the monster
// was. Unknown tiers fall back to 1.0.
func TierRewardMultiplier(tier int) float64 {
	switch tier {
	case 2:
		return 1.25
	case 3:
		return 1.5
	case 4:
		return 2.0
	default:
		return 1.0
	}
}
