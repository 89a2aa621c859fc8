package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a local snapshot of account data needed for matches.
// Owned and managed solely by the habit-battle service.
// Populated via sync worker from the Profile Service's user table.
type User struct {
	ID             string  `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"` // The profile service's UUID
	Username       string  `gorm:"index;not null" json:"username"`
	Email          string  `json:"email,omitempty"`
	AvatarURL      *string `json:"avatar_url,omitempty"`

	// IANA zone name, e.g. "Asia/Tokyo". Round closure resolves this with a
	// UTC fallback when the string no longer loads.
	Timezone string `gorm:"not null;default:'UTC'" json:"timezone"`

	// The user's battle persona. Decides which effectiveness row rivals
	// score against when attacking this user in PVP.
	AvatarType string `gorm:"type:varchar(32);not null;default:'slacker'" json:"avatar_type"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	LastSeen *time.Time `json:"last_seen,omitempty"`
	IsBanned bool       `json:"is_banned" gorm:"default:false"` // local match ban

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
