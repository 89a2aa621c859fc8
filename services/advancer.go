package services

import (
	"errors"
	"fmt"

	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-battle-system/models"
)

// dayScore is one actor's result for one round date.
type dayScore struct {
	damage         int
	mandatoryDone  int
	mandatoryQuota int
	optionalDone   int
	discoveries    []Discovery
}

func scoreDay(tx *gorm.DB, externalUserID, targetType string, roundDate time.Time) (*dayScore, error) {
	mandatory, optional, err := dayTasks(tx, externalUserID, roundDate)
	if err != nil {
		return nil, err
	}
	damage, discoveries := ComputeRoundDamage(targetType, mandatory, optional)
	s := &dayScore{damage: damage, mandatoryQuota: len(mandatory), discoveries: discoveries}
	for _, t := range mandatory {
		if t.Completed {
			s.mandatoryDone++
		}
	}
	for _, t := range optional {
		if t.Completed {
			s.optionalDone++
		}
	}
	return s, nil
}

// AdvanceBattle closes every round whose calendar day has fully passed in
// BOTH participants' timezones, strictly in order, then finalizes once all
// rounds are closed. Returns the number of rounds closed by this call; 0 is
// the normal result when nothing new is closeable.
//
// Safe to call redundantly and concurrently for the same battle: each round
// closes inside a row-locked transaction, and a caller that lost the race
// stops quietly.
func (e *Engine) AdvanceBattle(b *models.Battle) (int, error) {
	if b.Status != models.BattleStatusActive || b.StartDate == nil {
		return 0, nil
	}

	actor1, err := e.userByExternalID(b.Actor1ID)
	if err != nil {
		return 0, err
	}
	actor2, err := e.userByExternalID(b.Actor2ID)
	if err != nil {
		return 0, err
	}
	loc1 := resolveLocation(actor1.Timezone)
	loc2 := resolveLocation(actor2.Timezone)

	processed := 0
	for b.CurrentRound < b.Duration {
		roundDate := dateOnly(*b.StartDate).AddDate(0, 0, b.CurrentRound)
		if !dayClosed(e.now(), roundDate, loc1, loc2) {
			break
		}
		if err := e.closeBattleRound(b, actor1, actor2); err != nil {
			if errors.Is(err, errRoundRaced) {
				return processed, nil
			}
			return processed, err
		}
		processed++
		metricRoundsClosed.WithLabelValues(models.MatchTypeBattle).Inc()
	}

	if b.CurrentRound >= b.Duration && b.Status == models.BattleStatusActive {
		if _, err := e.FinalizeBattle(b.ID); err != nil {
			return processed, err
		}
		if err := e.DB.First(b, "id = ?", b.ID).Error; err != nil {
			return processed, fmt.Errorf("failed to reload battle %s: %w", b.ID, err)
		}
	}
	return processed, nil
}

// closeBattleRound scores both sides for the next unclosed day and advances
// the round pointer, all in one transaction. Either the round records, the
// totals and the pointer all commit, or none do.
func (e *Engine) closeBattleRound(b *models.Battle, actor1, actor2 *models.User) error {
	return e.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Battle
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, "id = ?", b.ID).Error; err != nil {
			return fmt.Errorf("failed to lock battle %s: %w", b.ID, err)
		}
		if locked.Status != models.BattleStatusActive || locked.StartDate == nil {
			return errRoundRaced
		}
		if locked.CurrentRound != b.CurrentRound {
			return errRoundRaced
		}

		roundIndex := locked.CurrentRound
		roundDate := dateOnly(*locked.StartDate).AddDate(0, 0, roundIndex)

		// Each side's tasks score against the opposing persona.
		s1, err := scoreDay(tx, actor1.ExternalUserID, actor2.AvatarType, roundDate)
		if err != nil {
			return err
		}
		s2, err := scoreDay(tx, actor2.ExternalUserID, actor1.AvatarType, roundDate)
		if err != nil {
			return err
		}

		rounds := []models.MatchRound{
			{
				ID:             uuid.NewString(),
				MatchType:      models.MatchTypeBattle,
				MatchID:        locked.ID,
				ExternalUserID: actor1.ExternalUserID,
				RoundIndex:     roundIndex,
				RoundDate:      roundDate,
				Damage:         s1.damage,
				MandatoryDone:  s1.mandatoryDone,
				MandatoryQuota: s1.mandatoryQuota,
				OptionalDone:   s1.optionalDone,
			},
			{
				ID:             uuid.NewString(),
				MatchType:      models.MatchTypeBattle,
				MatchID:        locked.ID,
				ExternalUserID: actor2.ExternalUserID,
				RoundIndex:     roundIndex,
				RoundDate:      roundDate,
				Damage:         s2.damage,
				MandatoryDone:  s2.mandatoryDone,
				MandatoryQuota: s2.mandatoryQuota,
				OptionalDone:   s2.optionalDone,
			},
		}
		if err := tx.Create(&rounds).Error; err != nil {
			return fmt.Errorf("failed to write round %d of battle %s: %w", roundIndex, locked.ID, err)
		}

		if err := recordDiscoveries(tx, actor1.ExternalUserID, actor2.AvatarType, s1.discoveries); err != nil {
			return err
		}
		if err := recordDiscoveries(tx, actor2.ExternalUserID, actor1.AvatarType, s2.discoveries); err != nil {
			return err
		}

		locked.Actor1XP += s1.damage
		locked.Actor2XP += s2.damage
		locked.CurrentRound = roundIndex + 1
		if err := tx.Save(&locked).Error; err != nil {
			return fmt.Errorf("failed to advance battle %s past round %d: %w", locked.ID, roundIndex, err)
		}

		*b = locked
		return nil
	})
}

// AdvanceAdventure closes every round whose day has passed in the owner's
// timezone, strictly in order. Skips entirely while an unexpired break is
// running; clears expired break flags first. Finalizes on terminal state
// (monster dead, or deadline passed).
func (e *Engine) AdvanceAdventure(a *models.Adventure) (int, error) {
	if a.Status != models.AdventureStatusActive {
		return 0, nil
	}

	owner, err := e.userByExternalID(a.UserID)
	if err != nil {
		return 0, err
	}
	today := localDate(e.now(), resolveLocation(owner.Timezone))

	if a.IsOnBreak {
		if a.BreakEndDate != nil && today.Before(dateOnly(*a.BreakEndDate)) {
			return 0, nil
		}
		if err := e.clearExpiredBreak(a); err != nil {
			return 0, err
		}
	}

	processed := 0
	for a.CurrentRound < a.Duration {
		roundDate := dateOnly(a.StartDate).AddDate(0, 0, a.CurrentRound)
		if !today.After(roundDate) {
			break
		}
		if err := e.closeAdventureRound(a, owner); err != nil {
			if errors.Is(err, errRoundRaced) {
				return processed, nil
			}
			return processed, err
		}
		processed++
		metricRoundsClosed.WithLabelValues(models.MatchTypeAdventure).Inc()
		// Once the monster is down there is nothing left to score.
		if a.MonsterCurrentHP <= 0 {
			break
		}
	}

	if a.Status == models.AdventureStatusActive &&
		(a.MonsterCurrentHP <= 0 || today.After(dateOnly(a.Deadline))) {
		if _, err := e.FinalizeAdventure(a.ID); err != nil {
			return processed, err
		}
		if err := e.DB.First(a, "id = ?", a.ID).Error; err != nil {
			return processed, fmt.Errorf("failed to reload adventure %s: %w", a.ID, err)
		}
	}
	return processed, nil
}

// clearExpiredBreak lifts a finished break so round processing can resume.
func (e *Engine) clearExpiredBreak(a *models.Adventure) error {
	res := e.DB.Model(&models.Adventure{}).
		Where("id = ? AND is_on_break = ?", a.ID, true).
		Updates(map[string]interface{}{"is_on_break": false, "break_end_date": nil})
	if res.Error != nil {
		return fmt.Errorf("failed to clear expired break on adventure %s: %w", a.ID, res.Error)
	}
	a.IsOnBreak = false
	a.BreakEndDate = nil
	return nil
}

// closeAdventureRound scores the owner's day against the monster and applies
// the damage, flooring HP at zero, in one transaction.
func (e *Engine) closeAdventureRound(a *models.Adventure, owner *models.User) error {
	return e.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Adventure
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, "id = ?", a.ID).Error; err != nil {
			return fmt.Errorf("failed to lock adventure %s: %w", a.ID, err)
		}
		if locked.Status != models.AdventureStatusActive {
			return errRoundRaced
		}
		if locked.CurrentRound != a.CurrentRound {
			return errRoundRaced
		}

		roundIndex := locked.CurrentRound
		roundDate := dateOnly(locked.StartDate).AddDate(0, 0, roundIndex)

		score, err := scoreDay(tx, owner.ExternalUserID, locked.MonsterType, roundDate)
		if err != nil {
			return err
		}

		round := models.MatchRound{
			ID:             uuid.NewString(),
			MatchType:      models.MatchTypeAdventure,
			MatchID:        locked.ID,
			ExternalUserID: owner.ExternalUserID,
			RoundIndex:     roundIndex,
			RoundDate:      roundDate,
			Damage:         score.damage,
			MandatoryDone:  score.mandatoryDone,
			MandatoryQuota: score.mandatoryQuota,
			OptionalDone:   score.optionalDone,
		}
		if err := tx.Create(&round).Error; err != nil {
			return fmt.Errorf("failed to write round %d of adventure %s: %w", roundIndex, locked.ID, err)
		}

		if err := recordDiscoveries(tx, owner.ExternalUserID, locked.MonsterType, score.discoveries); err != nil {
			return err
		}

		locked.TotalDamageDealt += score.damage
		locked.MonsterCurrentHP -= score.damage
		if locked.MonsterCurrentHP < 0 {
			locked.MonsterCurrentHP = 0
		}
		locked.CurrentRound = roundIndex + 1
		if err := tx.Save(&locked).Error; err != nil {
			return fmt.Errorf("failed to advance adventure %s past round %d: %w", locked.ID, roundIndex, err)
		}

		*a = locked
		return nil
	})
}
