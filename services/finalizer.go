package services

import (
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-battle-system/models"
)

// BattleOutcome is the result of finalizing a PVP battle. Repeat finalize
// calls return the stored outcome with AlreadyFinalized set.
type BattleOutcome struct {
	BattleID         string  `json:"battle_id"`
	Status           string  `json:"status"`
	WinnerID         *string `json:"winner_id,omitempty"`
	IsDraw           bool    `json:"is_draw"`
	Actor1XP         int     `json:"actor1_xp"`
	Actor2XP         int     `json:"actor2_xp"`
	Actor1Reward     float64 `json:"actor1_reward"`
	Actor2Reward     float64 `json:"actor2_reward"`
	AlreadyFinalized bool    `json:"already_finalized"`
}

func battleOutcomeOf(b *models.Battle, already bool) *BattleOutcome {
	return &BattleOutcome{
		BattleID:         b.ID,
		Status:           b.Status,
		WinnerID:         b.WinnerID,
		IsDraw:           b.IsDraw,
		Actor1XP:         b.Actor1XP,
		Actor2XP:         b.Actor2XP,
		Actor1Reward:     b.Actor1Reward,
		Actor2Reward:     b.Actor2Reward,
		AlreadyFinalized: already,
	}
}

// FinalizeBattle settles a battle whose rounds are all closed: compares the
// per-side totals, applies win/loss/draw stat deltas to both participants and
// writes the rewards. Exactly-once: callers racing on the same battle all
// receive the first caller's outcome.
func (e *Engine) FinalizeBattle(battleID string) (*BattleOutcome, error) {
	return e.completeBattle(battleID, nil)
}

// ForfeitBattle is the explicit-action variant: the outcome is fixed (the
// forfeiter's opponent wins) instead of derived from score comparison. Valid
// only while the battle is active and only for a participant.
func (e *Engine) ForfeitBattle(battleID, requesterID string) (*BattleOutcome, error) {
	return e.completeBattle(battleID, &requesterID)
}

func (e *Engine) completeBattle(battleID string, forfeitedBy *string) (*BattleOutcome, error) {
	var outcome *BattleOutcome
	var participants []string
	err := e.DB.Transaction(func(tx *gorm.DB) error {
		var b models.Battle
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, "id = ?", battleID).Error; err != nil {
			return fmt.Errorf("failed to lock battle %s: %w", battleID, err)
		}

		// The marker is checked after taking the lock so a concurrent
		// finalizer cannot slip between check and commit.
		if b.CompletedAt != nil {
			if forfeitedBy != nil {
				return ErrMatchNotActive
			}
			outcome = battleOutcomeOf(&b, true)
			return nil
		}
		if b.Status != models.BattleStatusActive {
			return ErrMatchNotActive
		}

		if forfeitedBy != nil {
			if !b.IsParticipant(*forfeitedBy) {
				return ErrNotParticipant
			}
			winner := b.Opponent(*forfeitedBy)
			b.WinnerID = &winner
		} else {
			if b.CurrentRound < b.Duration {
				return ErrMatchNotFinished
			}
			switch {
			case b.Actor1XP > b.Actor2XP:
				winner := b.Actor1ID
				b.WinnerID = &winner
			case b.Actor2XP > b.Actor1XP:
				winner := b.Actor2ID
				b.WinnerID = &winner
			default:
				// Equal totals are an explicit draw, not a tie-break.
				b.IsDraw = true
			}
		}

		switch {
		case b.IsDraw:
			b.Actor1Reward = float64(b.Actor1XP) * 0.5
			b.Actor2Reward = float64(b.Actor2XP) * 0.5
		case b.WinnerID != nil && *b.WinnerID == b.Actor1ID:
			b.Actor1Reward = float64(b.Actor1XP)
		case b.WinnerID != nil && *b.WinnerID == b.Actor2ID:
			b.Actor2Reward = float64(b.Actor2XP)
		}

		now := e.now()
		b.Status = models.BattleStatusCompleted
		b.CompletedAt = &now

		if err := e.applyBattleStats(tx, &b); err != nil {
			return err
		}
		if err := createBattleRewards(tx, &b); err != nil {
			return err
		}
		if err := tx.Save(&b).Error; err != nil {
			return fmt.Errorf("failed to complete battle %s: %w", b.ID, err)
		}

		outcome = battleOutcomeOf(&b, false)
		participants = []string{b.Actor1ID, b.Actor2ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !outcome.AlreadyFinalized {
		result := "draw"
		if outcome.WinnerID != nil {
			result = "win"
		}
		metricFinalizations.WithLabelValues(models.MatchTypeBattle, result).Inc()
		log.Printf("⚔️ Battle %s finalized: winner=%v draw=%v (%d vs %d XP)",
			outcome.BattleID, outcome.WinnerID, outcome.IsDraw, outcome.Actor1XP, outcome.Actor2XP)
		e.awardBadges(participants...)
	}
	return outcome, nil
}

// applyBattleStats mutates both participants' aggregates. Rows are touched in
// sorted ID order so concurrent finalizers of different battles sharing a
// participant cannot deadlock.
func (e *Engine) applyBattleStats(tx *gorm.DB, b *models.Battle) error {
	ids := []string{b.Actor1ID, b.Actor2ID}
	sort.Strings(ids)
	for _, id := range ids {
		stats, err := lockStats(tx, id)
		if err != nil {
			return err
		}
		stats.BattleCount++
		if b.WinnerID != nil && *b.WinnerID == id {
			stats.BattleWins++
		}
		xp := b.Actor2XP
		if id == b.Actor1ID {
			xp = b.Actor1XP
		}
		stats.TotalXP += int64(xp)
		applyLevel(stats, e.now())
		if stats.CurrentBattleID != nil && *stats.CurrentBattleID == b.ID {
			stats.CurrentBattleID = nil
		}
		if err := tx.Save(stats).Error; err != nil {
			return fmt.Errorf("failed to update stats for %s: %w", id, err)
		}
	}
	return nil
}

func createBattleRewards(tx *gorm.DB, b *models.Battle) error {
	type entry struct {
		userID   string
		amount   float64
		category models.RewardCategory
		title    string
	}
	var entries []entry
	if b.IsDraw {
		entries = append(entries,
			entry{b.Actor1ID, b.Actor1Reward, models.RewardCategoryDraw, "Battle ended in a draw"},
			entry{b.Actor2ID, b.Actor2Reward, models.RewardCategoryDraw, "Battle ended in a draw"},
		)
	} else if b.WinnerID != nil {
		amount := b.Actor1Reward
		if *b.WinnerID == b.Actor2ID {
			amount = b.Actor2Reward
		}
		entries = append(entries, entry{*b.WinnerID, amount, models.RewardCategoryBattleWin, "Battle victory"})
	}

	for _, en := range entries {
		if en.amount <= 0 {
			continue
		}
		reward := models.MatchReward{
			ID:             uuid.NewString(),
			ExternalUserID: en.userID,
			MatchType:      models.MatchTypeBattle,
			MatchID:        b.ID,
			Title:          en.title,
			Category:       en.category,
			Amount:         en.amount,
		}
		if err := tx.Create(&reward).Error; err != nil {
			return fmt.Errorf("failed to write battle reward for %s: %w", en.userID, err)
		}
	}
	return nil
}

// AdventureOutcome is the result of finalizing an adventure.
type AdventureOutcome struct {
	AdventureID      string  `json:"adventure_id"`
	Status           string  `json:"status"`
	Outcome          string  `json:"outcome"`
	MonsterName      string  `json:"monster_name"`
	TotalDamageDealt int     `json:"total_damage_dealt"`
	Reward           float64 `json:"reward"`
	AlreadyFinalized bool    `json:"already_finalized"`
}

func adventureOutcomeOf(a *models.Adventure, already bool) *AdventureOutcome {
	return &AdventureOutcome{
		AdventureID:      a.ID,
		Status:           a.Status,
		Outcome:          a.Outcome,
		MonsterName:      a.MonsterName,
		TotalDamageDealt: a.TotalDamageDealt,
		Reward:           a.Reward,
		AlreadyFinalized: already,
	}
}

// FinalizeAdventure settles a terminal adventure: victory when the monster's
// HP is exhausted (reward = total damage times the tier multiplier), escape
// when the deadline passed with HP left (half reward). Exactly-once via the
// same lock-then-marker pattern as battles.
func (e *Engine) FinalizeAdventure(adventureID string) (*AdventureOutcome, error) {
	return e.completeAdventure(adventureID, "", false)
}

// AbandonAdventure is the explicit-action variant: the owner gives up early
// for half of the current reward. Counts as an escape.
func (e *Engine) AbandonAdventure(adventureID, requesterID string) (*AdventureOutcome, error) {
	return e.completeAdventure(adventureID, requesterID, true)
}

func (e *Engine) completeAdventure(adventureID, requesterID string, abandon bool) (*AdventureOutcome, error) {
	var outcome *AdventureOutcome
	var ownerID string
	err := e.DB.Transaction(func(tx *gorm.DB) error {
		var a models.Adventure
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, "id = ?", adventureID).Error; err != nil {
			return fmt.Errorf("failed to lock adventure %s: %w", adventureID, err)
		}

		if a.CompletedAt != nil {
			if abandon {
				return ErrMatchNotActive
			}
			outcome = adventureOutcomeOf(&a, true)
			return nil
		}
		if a.Status != models.AdventureStatusActive {
			return ErrMatchNotActive
		}
		if abandon && a.UserID != requesterID {
			return ErrNotOwner
		}

		fullReward := float64(a.TotalDamageDealt) * models.TierRewardMultiplier(a.MonsterTier)

		switch {
		case abandon:
			a.Outcome = models.AdventureOutcomeAbandoned
			a.Status = models.AdventureStatusEscaped
			a.Reward = fullReward * 0.5
		case a.MonsterCurrentHP <= 0:
			a.Outcome = models.AdventureOutcomeVictory
			a.Status = models.AdventureStatusCompleted
			a.Reward = fullReward
		default:
			var owner models.User
			if err := tx.Where("external_user_id = ?", a.UserID).First(&owner).Error; err != nil {
				return fmt.Errorf("failed to load adventure owner %s: %w", a.UserID, err)
			}
			today := localDate(e.now(), resolveLocation(owner.Timezone))
			if !today.After(dateOnly(a.Deadline)) {
				return ErrMatchNotFinished
			}
			a.Outcome = models.AdventureOutcomeEscape
			a.Status = models.AdventureStatusEscaped
			a.Reward = fullReward * 0.5
		}

		now := e.now()
		a.CompletedAt = &now

		stats, err := lockStats(tx, a.UserID)
		if err != nil {
			return err
		}
		if a.Outcome == models.AdventureOutcomeVictory {
			stats.MonstersDefeated++
			stats.AdventureRating++
			if a.MonsterTier > stats.HighestTierDefeated {
				stats.HighestTierDefeated = a.MonsterTier
			}
		} else {
			stats.MonstersEscaped++
			if stats.AdventureRating > 0 {
				stats.AdventureRating--
			}
		}
		stats.TotalXP += int64(a.TotalDamageDealt)
		applyLevel(stats, now)
		if stats.CurrentAdventureID != nil && *stats.CurrentAdventureID == a.ID {
			stats.CurrentAdventureID = nil
		}
		if err := tx.Save(stats).Error; err != nil {
			return fmt.Errorf("failed to update stats for %s: %w", a.UserID, err)
		}

		if err := createAdventureReward(tx, &a); err != nil {
			return err
		}
		if err := tx.Save(&a).Error; err != nil {
			return fmt.Errorf("failed to complete adventure %s: %w", a.ID, err)
		}

		outcome = adventureOutcomeOf(&a, false)
		ownerID = a.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !outcome.AlreadyFinalized {
		metricFinalizations.WithLabelValues(models.MatchTypeAdventure, outcome.Outcome).Inc()
		log.Printf("🐉 Adventure %s finalized: %s vs %s, %d damage, reward %.1f",
			outcome.AdventureID, outcome.Outcome, outcome.MonsterName, outcome.TotalDamageDealt, outcome.Reward)
		e.awardBadges(ownerID)
	}
	return outcome, nil
}

func createAdventureReward(tx *gorm.DB, a *models.Adventure) error {
	if a.Reward <= 0 {
		return nil
	}
	category := models.RewardCategoryVictory
	title := fmt.Sprintf("Defeated %s", a.MonsterName)
	switch a.Outcome {
	case models.AdventureOutcomeEscape:
		category = models.RewardCategoryEscape
		title = fmt.Sprintf("%s escaped, partial credit", a.MonsterName)
	case models.AdventureOutcomeAbandoned:
		category = models.RewardCategoryAbandoned
		title = fmt.Sprintf("Abandoned the hunt for %s", a.MonsterName)
	}
	reward := models.MatchReward{
		ID:             uuid.NewString(),
		ExternalUserID: a.UserID,
		MatchType:      models.MatchTypeAdventure,
		MatchID:        a.ID,
		Title:          title,
		Category:       category,
		Amount:         a.Reward,
	}
	if err := tx.Create(&reward).Error; err != nil {
		return fmt.Errorf("failed to write adventure reward for %s: %w", a.UserID, err)
	}
	return nil
}
