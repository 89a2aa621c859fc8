package models

import (
	"time"
)

// BadgeType: static config (loaded from DB or seeded from BadgeTriggers)
type BadgeType struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	Code        string `gorm:"uniqueIndex;not null"` // e.g., "FIRST_WIN", "MONSTER_SLAYER"
	Name        string `gorm:"not null"`             // "First Victory", "Monster Slayer"
	Description string
	IconURL     string           `gorm:"type:text"`
	Rarity      string           `gorm:"type:varchar(16);default:'common'"` // common, rare, epic, legendary
	Threshold   map[string]int64 `gorm:"serializer:json;type:jsonb"`        // e.g., {"battle_wins": 1}
	CreatedAt   time.Time        `gorm:"autoCreateTime"`
}

// UserBadge: awarded instance (many-to-many)
type UserBadge struct {
	ID             string    `gorm:"primaryKey;type:uuid"`
	ExternalUserID string    `gorm:"index;not null"`
	BadgeTypeID    string    `gorm:"index;not null"`
	AwardedAt      time.Time `gorm:"autoCreateTime"`
	Metadata       string    `gorm:"type:jsonb;default:'{}'"` // e.g., {"match_id": "...", "tier": 3}
}

// Predefined badge triggers, seeded at boot. Thresholds read UserStats fields.
var BadgeTriggers = []BadgeType{
	{
		Code:        "FIRST_BLOOD",
		Name:        "First Blood",
		Description: "Won your first battle",
		Rarity:      "common",
		Threshold:   map[string]int64{"battle_wins": 1},
	},
	{
		Code:        "RIVAL_CRUSHER",
		Name:        "Rival Crusher",
		Description: "Won 10 battles",
		Rarity:      "rare",
		Threshold:   map[string]int64{"battle_wins": 10},
	},
	{
		Code:        "MONSTER_SLAYER",
		Name:        "Monster Slayer",
		Description: "Defeated 10 monsters",
		Rarity:      "rare",
		Threshold:   map[string]int64{"monsters_defeated": 10},
	},
	{
		Code:        "APEX_HUNTER",
		Name:        "Apex Hunter",
		Description: "Defeated a tier 4 monster",
		Rarity:      "legendary",
		Threshold:   map[string]int64{"highest_tier_defeated": 4},
	},
	{
		Code:        "VETERAN",
		Name:        "Veteran",
		Description: "Played 25 matches",
		Rarity:      "epic",
		Threshold:   map[string]int64{"total_matches": 25},
	},
	{
		Code:        "LEVEL_10",
		Name:        "Double Digits",
		Description: "Reached level 10",
		Rarity:      "rare",
		Threshold:   map[string]int64{"level": 10},
	},
}
