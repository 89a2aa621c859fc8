package services

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-battle-system/models"
)

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// SeedBadgeTypes loads the predefined badge catalog, keyed by code. Existing
// rows are left untouched so operators can tune names and icons in place.
func (s *BadgeService) SeedBadgeTypes() error {
	for _, trigger := range models.BadgeTriggers {
		badge := trigger
		badge.ID = uuid.NewString()
		err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&badge).Error
		if err != nil {
			return fmt.Errorf("failed to seed badge %s: %w", badge.Code, err)
		}
	}
	return nil
}

// AutoAwardBadges checks all badge thresholds for a user after a stats update
func (s *BadgeService) AutoAwardBadges(externalUserID string) error {
	var stats models.UserStats
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&stats).Error; err != nil {
		return err
	}

	var types []models.BadgeType
	if err := s.DB.Find(&types).Error; err != nil {
		return err
	}

	for _, badgeType := range types {
		if !s.meetsThreshold(&stats, badgeType.Threshold) {
			continue
		}
		// Check if already awarded
		var count int64
		s.DB.Model(&models.UserBadge{}).
			Where("external_user_id = ? AND badge_type_id = ?", externalUserID, badgeType.ID).
			Count(&count)
		if count == 0 {
			userBadge := models.UserBadge{
				ID:             uuid.NewString(),
				ExternalUserID: externalUserID,
				BadgeTypeID:    badgeType.ID,
			}
			if err := s.DB.Create(&userBadge).Error; err != nil {
				return err
			}
			metricBadgesAwarded.WithLabelValues(badgeType.Code).Inc()
			log.Printf("🎖️ Badge awarded: %s → %s", badgeType.Name, externalUserID)
		}
	}
	return nil
}

func (s *BadgeService) meetsThreshold(stats *models.UserStats, req map[string]int64) bool {
	for key, required := range req {
		var have int64
		switch key {
		case "battle_wins":
			have = stats.BattleWins
		case "battle_count":
			have = stats.BattleCount
		case "monsters_defeated":
			have = stats.MonstersDefeated
		case "monsters_escaped":
			have = stats.MonstersEscaped
		case "highest_tier_defeated":
			have = int64(stats.HighestTierDefeated)
		case "total_matches":
			have = stats.BattleCount + stats.MonstersDefeated + stats.MonstersEscaped
		case "adventure_rating":
			have = stats.AdventureRating
		case "level":
			have = int64(stats.Level)
		default:
			return false
		}
		if have < required {
			return false
		}
	}
	return true
}

// UserBadgeView joins an awarded badge with its catalog entry.
type UserBadgeView struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
	Rarity      string `json:"rarity"`
	AwardedAt   string `json:"awarded_at"`
}

// ListUserBadges returns everything a user has earned, newest first.
func (s *BadgeService) ListUserBadges(externalUserID string) ([]UserBadgeView, error) {
	var awards []models.UserBadge
	if err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("awarded_at DESC").
		Find(&awards).Error; err != nil {
		return nil, err
	}
	if len(awards) == 0 {
		return []UserBadgeView{}, nil
	}

	ids := make([]string, 0, len(awards))
	for _, a := range awards {
		ids = append(ids, a.BadgeTypeID)
	}
	var types []models.BadgeType
	if err := s.DB.Where("id IN ?", ids).Find(&types).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.BadgeType, len(types))
	for _, t := range types {
		byID[t.ID] = t
	}

	views := make([]UserBadgeView, 0, len(awards))
	for _, a := range awards {
		t, ok := byID[a.BadgeTypeID]
		if !ok {
			continue
		}
		views = append(views, UserBadgeView{
			ID:          a.ID,
			Code:        t.Code,
			Name:        t.Name,
			Description: t.Description,
			IconURL:     t.IconURL,
			Rarity:      t.Rarity,
			AwardedAt:   a.AwardedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return views, nil
}
