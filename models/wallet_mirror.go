// models/wallet_mirror.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// CoinWalletMirror mirrors coin balances from the wallet service.
// Read-only on this side; refreshed by the wallet sync worker and shown on
// the profile next to unclaimed match rewards.
// Table name: coin_wallet_mirrors
type CoinWalletMirror struct {
	ID             string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID         string    `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"` // External user ID
	Currency       string    `gorm:"type:varchar(16);not null;default:'coins'" json:"currency"`
	Balance        float64   `gorm:"not null;default:0" json:"balance"`
	LifetimeEarned float64   `gorm:"not null;default:0" json:"lifetime_earned"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	LastSyncedAt   time.Time `gorm:"not null" json:"last_synced_at"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index"`
}
