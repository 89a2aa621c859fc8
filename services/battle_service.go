package services

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-battle-system/models"
)

var (
	ErrChallengeSelf    = errors.New("cannot challenge yourself")
	ErrAlreadyInBattle  = errors.New("a participant already has an active battle")
	ErrInviteNotPending = errors.New("challenge is no longer pending")
	ErrNotInvitee       = errors.New("only the challenged user can respond")
	ErrInvalidDuration  = errors.New("duration must be between 3 and 7 days")
)

// InviteExpiryDays is how long a pending challenge stays answerable.
const InviteExpiryDays = 7

type BattleService struct {
	DB     *gorm.DB
	Engine *Engine
}

func NewBattleService(db *gorm.DB, engine *Engine) *BattleService {
	return &BattleService{DB: db, Engine: engine}
}

// CreateChallenge opens a pending battle invite. Both sides must exist and
// be free of an active battle; pending invites do not block new ones.
func (s *BattleService) CreateChallenge(challengerID, opponentID string, duration int) (*models.Battle, error) {
	if challengerID == opponentID {
		return nil, ErrChallengeSelf
	}
	if duration < models.MinMatchDuration || duration > models.MaxMatchDuration {
		return nil, ErrInvalidDuration
	}

	var opponent models.User
	if err := s.DB.Where("external_user_id = ?", opponentID).First(&opponent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("opponent not found")
		}
		return nil, err
	}
	if opponent.IsBanned {
		return nil, fmt.Errorf("opponent not available")
	}

	for _, id := range []string{challengerID, opponentID} {
		stats, err := ensureStatsTx(s.DB, id)
		if err != nil {
			return nil, err
		}
		if stats.CurrentBattleID != nil {
			return nil, ErrAlreadyInBattle
		}
	}

	battle := models.Battle{
		ID:       uuid.NewString(),
		Actor1ID: challengerID,
		Actor2ID: opponentID,
		Status:   models.BattleStatusPending,
		Duration: duration,
	}
	if err := s.DB.Create(&battle).Error; err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	log.Printf("⚔️ Challenge created: %s → %s (%d days)", challengerID, opponentID, duration)
	return &battle, nil
}

// AcceptChallenge activates a pending battle. Rounds start counting from the
// next UTC day so both sides get a full first day. Both participants are
// marked busy; either already being in another battle rejects the accept.
func (s *BattleService) AcceptChallenge(battleID, requesterID string) (*models.Battle, error) {
	var battle models.Battle
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&battle, "id = ?", battleID).Error; err != nil {
			return fmt.Errorf("failed to lock battle %s: %w", battleID, err)
		}
		if battle.Status != models.BattleStatusPending {
			return ErrInviteNotPending
		}
		if !battle.IsParticipant(requesterID) {
			return ErrNotParticipant
		}
		if battle.Actor2ID != requesterID {
			return ErrNotInvitee
		}

		ids := []string{battle.Actor1ID, battle.Actor2ID}
		sort.Strings(ids)
		for _, id := range ids {
			stats, err := lockStats(tx, id)
			if err != nil {
				return err
			}
			if stats.CurrentBattleID != nil {
				return ErrAlreadyInBattle
			}
			stats.CurrentBattleID = &battle.ID
			if err := tx.Save(stats).Error; err != nil {
				return fmt.Errorf("failed to mark %s busy: %w", id, err)
			}
		}

		start := dateOnly(s.Engine.now()).AddDate(0, 0, 1)
		battle.Status = models.BattleStatusActive
		battle.StartDate = &start
		return tx.Save(&battle).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("⚔️ Battle %s accepted: %s vs %s starts %s",
		battle.ID, battle.Actor1ID, battle.Actor2ID, battle.StartDate.Format("2006-01-02"))
	return &battle, nil
}

// DeclineChallenge closes a pending invite. The invitee declines, the
// challenger withdraws; both land on the same declined status.
func (s *BattleService) DeclineChallenge(battleID, requesterID string) (*models.Battle, error) {
	var battle models.Battle
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&battle, "id = ?", battleID).Error; err != nil {
			return fmt.Errorf("failed to lock battle %s: %w", battleID, err)
		}
		if battle.Status != models.BattleStatusPending {
			return ErrInviteNotPending
		}
		if !battle.IsParticipant(requesterID) {
			return ErrNotParticipant
		}
		battle.Status = models.BattleStatusDeclined
		return tx.Save(&battle).Error
	})
	if err != nil {
		return nil, err
	}
	return &battle, nil
}

// CurrentBattle returns the requester's active battle after catching up any
// overdue rounds. Reading the current battle is one of the two trigger paths
// so a user opening the app settles everything the sweep has not reached yet.
func (s *BattleService) CurrentBattle(externalUserID string) (*models.Battle, int, error) {
	stats, err := ensureStatsTx(s.DB, externalUserID)
	if err != nil {
		return nil, 0, err
	}
	if stats.CurrentBattleID == nil {
		return nil, 0, nil
	}

	var battle models.Battle
	if err := s.DB.First(&battle, "id = ?", *stats.CurrentBattleID).Error; err != nil {
		return nil, 0, err
	}

	closed, err := s.Engine.AdvanceBattle(&battle)
	if err != nil {
		return nil, 0, err
	}
	return &battle, closed, nil
}

// PendingInvites lists unanswered challenges involving the user that have
// not aged out yet.
func (s *BattleService) PendingInvites(externalUserID string) ([]models.Battle, error) {
	cutoff := s.Engine.now().AddDate(0, 0, -InviteExpiryDays)
	var invites []models.Battle
	err := s.DB.Where("status = ? AND (actor1_id = ? OR actor2_id = ?) AND created_at > ?",
		models.BattleStatusPending, externalUserID, externalUserID, cutoff).
		Order("created_at DESC").
		Find(&invites).Error
	return invites, err
}

// GetBattle fetches one battle for a participant, advancing it first if it
// is still active.
func (s *BattleService) GetBattle(battleID, requesterID string) (*models.Battle, error) {
	var battle models.Battle
	if err := s.DB.First(&battle, "id = ?", battleID).Error; err != nil {
		return nil, err
	}
	if !battle.IsParticipant(requesterID) {
		return nil, ErrNotParticipant
	}
	if battle.Status == models.BattleStatusActive {
		if _, err := s.Engine.AdvanceBattle(&battle); err != nil {
			return nil, err
		}
	}
	return &battle, nil
}

// Forfeit concedes an active battle. Overdue rounds are settled first, so a
// battle whose days have all passed completes on its results instead.
func (s *BattleService) Forfeit(battleID, requesterID string) (*BattleOutcome, error) {
	var battle models.Battle
	if err := s.DB.First(&battle, "id = ?", battleID).Error; err != nil {
		return nil, err
	}
	if !battle.IsParticipant(requesterID) {
		return nil, ErrNotParticipant
	}
	if battle.Status == models.BattleStatusActive {
		if _, err := s.Engine.AdvanceBattle(&battle); err != nil {
			return nil, err
		}
	}
	return s.Engine.ForfeitBattle(battleID, requesterID)
}

// History returns the requester's settled battles, newest first.
func (s *BattleService) History(externalUserID string, page, size int) ([]models.Battle, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	query := s.DB.Model(&models.Battle{}).
		Where("(actor1_id = ? OR actor2_id = ?) AND status IN ?",
			externalUserID, externalUserID,
			[]string{models.BattleStatusCompleted, models.BattleStatusDeclined})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var battles []models.Battle
	err := query.Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&battles).Error
	return battles, total, err
}

// Rounds lists the closed per-day entries of a battle for both sides.
func (s *BattleService) Rounds(battleID, requesterID string) ([]models.MatchRound, error) {
	var battle models.Battle
	if err := s.DB.First(&battle, "id = ?", battleID).Error; err != nil {
		return nil, err
	}
	if !battle.IsParticipant(requesterID) {
		return nil, ErrNotParticipant
	}

	var rounds []models.MatchRound
	err := s.DB.Where("match_type = ? AND match_id = ?", models.MatchTypeBattle, battleID).
		Order("round_index ASC, external_user_id ASC").
		Find(&rounds).Error
	return rounds, err
}

// ExpireStaleInvites declines pending challenges older than the expiry
// window. Run from the hourly sweep.
func (s *BattleService) ExpireStaleInvites() (int64, error) {
	cutoff := s.Engine.now().AddDate(0, 0, -InviteExpiryDays)
	res := s.DB.Model(&models.Battle{}).
		Where("status = ? AND created_at <= ?", models.BattleStatusPending, cutoff).
		Update("status", models.BattleStatusDeclined)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("🧹 Expired %d stale battle invites", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
