package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"habit-battle-system/models"
)

var ErrAlreadyAdventuring = errors.New("an adventure is already active")

type AdventureService struct {
	DB     *gorm.DB
	Engine *Engine
}

func NewAdventureService(db *gorm.DB, engine *Engine) *AdventureService {
	return &AdventureService{DB: db, Engine: engine}
}

// ListMonsters returns the published catalog, optionally filtered by tier.
func (s *AdventureService) ListMonsters(tier int) ([]models.Monster, error) {
	query := s.DB.Where("published = ?", true)
	if tier > 0 {
		query = query.Where("tier = ?", tier)
	}
	var monsters []models.Monster
	err := query.Order("tier ASC, name ASC").Find(&monsters).Error
	return monsters, err
}

// StartAdventure opens a hunt against a catalog monster. The first round is
// the owner's current local day and the deadline is the last scored day. One
// active adventure per user; battles do not block adventures.
func (s *AdventureService) StartAdventure(externalUserID, monsterID string, duration int) (*models.Adventure, error) {
	if duration < models.MinMatchDuration || duration > models.MaxMatchDuration {
		return nil, ErrInvalidDuration
	}

	owner, err := s.Engine.userByExternalID(externalUserID)
	if err != nil {
		return nil, err
	}

	var monster models.Monster
	if err := s.DB.First(&monster, "id = ? AND published = ?", monsterID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("monster not found")
		}
		return nil, err
	}

	start := localDate(s.Engine.now(), resolveLocation(owner.Timezone))
	deadline := start.AddDate(0, 0, duration-1)

	var adventure models.Adventure
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		stats, err := lockStats(tx, externalUserID)
		if err != nil {
			return err
		}
		if stats.CurrentAdventureID != nil {
			return ErrAlreadyAdventuring
		}

		adventure = models.Adventure{
			ID:               uuid.NewString(),
			UserID:           externalUserID,
			MonsterID:        monster.ID,
			MonsterName:      monster.Name,
			MonsterType:      monster.ActorType,
			MonsterTier:      monster.Tier,
			MonsterMaxHP:     monster.BaseHP,
			MonsterCurrentHP: monster.BaseHP,
			Status:           models.AdventureStatusActive,
			StartDate:        start,
			Deadline:         deadline,
			Duration:         duration,
		}
		if err := tx.Create(&adventure).Error; err != nil {
			return fmt.Errorf("failed to create adventure: %w", err)
		}

		stats.CurrentAdventureID = &adventure.ID
		return tx.Save(stats).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🐉 Adventure started: %s hunts %s (tier %d, %d HP, %d days)",
		externalUserID, monster.Name, monster.Tier, monster.BaseHP, duration)
	return &adventure, nil
}

// CurrentAdventure returns the requester's active hunt after catching up any
// overdue rounds.
func (s *AdventureService) CurrentAdventure(externalUserID string) (*models.Adventure, int, error) {
	stats, err := ensureStatsTx(s.DB, externalUserID)
	if err != nil {
		return nil, 0, err
	}
	if stats.CurrentAdventureID == nil {
		return nil, 0, nil
	}

	var adventure models.Adventure
	if err := s.DB.First(&adventure, "id = ?", *stats.CurrentAdventureID).Error; err != nil {
		return nil, 0, err
	}

	closed, err := s.Engine.AdvanceAdventure(&adventure)
	if err != nil {
		return nil, 0, err
	}
	return &adventure, closed, nil
}

// GetAdventure fetches one adventure for its owner, advancing it first if it
// is still active.
func (s *AdventureService) GetAdventure(adventureID, requesterID string) (*models.Adventure, error) {
	var adventure models.Adventure
	if err := s.DB.First(&adventure, "id = ?", adventureID).Error; err != nil {
		return nil, err
	}
	if adventure.UserID != requesterID {
		return nil, ErrNotOwner
	}
	if adventure.Status == models.AdventureStatusActive {
		if _, err := s.Engine.AdvanceAdventure(&adventure); err != nil {
			return nil, err
		}
	}
	return &adventure, nil
}

// Abandon gives up the hunt for half credit. Overdue rounds settle first, so
// an adventure the calendar already decided keeps its earned outcome.
func (s *AdventureService) Abandon(adventureID, requesterID string) (*AdventureOutcome, error) {
	var adventure models.Adventure
	if err := s.DB.First(&adventure, "id = ?", adventureID).Error; err != nil {
		return nil, err
	}
	if adventure.UserID != requesterID {
		return nil, ErrNotOwner
	}
	if adventure.Status == models.AdventureStatusActive {
		if _, err := s.Engine.AdvanceAdventure(&adventure); err != nil {
			return nil, err
		}
	}
	return s.Engine.AbandonAdventure(adventureID, requesterID)
}

// ScheduleBreak books a rest day. The adventure is advanced first so a hunt
// already past its deadline finalizes instead of gaining a break.
func (s *AdventureService) ScheduleBreak(adventureID, requesterID string) (*BreakResult, error) {
	var adventure models.Adventure
	if err := s.DB.First(&adventure, "id = ?", adventureID).Error; err != nil {
		return nil, err
	}
	if adventure.UserID != requesterID {
		return nil, ErrNotOwner
	}
	if adventure.Status == models.AdventureStatusActive {
		if _, err := s.Engine.AdvanceAdventure(&adventure); err != nil {
			return nil, err
		}
	}
	return s.Engine.ScheduleBreak(adventureID, requesterID)
}

// History returns the requester's settled adventures, newest first.
func (s *AdventureService) History(externalUserID string, page, size int) ([]models.Adventure, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	query := s.DB.Model(&models.Adventure{}).
		Where("user_id = ? AND status <> ?", externalUserID, models.AdventureStatusActive)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var adventures []models.Adventure
	err := query.Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&adventures).Error
	return adventures, total, err
}

// Rounds lists the closed per-day entries of an adventure.
func (s *AdventureService) Rounds(adventureID, requesterID string) ([]models.MatchRound, error) {
	var adventure models.Adventure
	if err := s.DB.First(&adventure, "id = ?", adventureID).Error; err != nil {
		return nil, err
	}
	if adventure.UserID != requesterID {
		return nil, ErrNotOwner
	}

	var rounds []models.MatchRound
	err := s.DB.Where("match_type = ? AND match_id = ?", models.MatchTypeAdventure, adventureID).
		Order("round_index ASC").
		Find(&rounds).Error
	return rounds, err
}
