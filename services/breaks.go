package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-battle-system/models"
)

// BreakResult reports the day a scheduled break covers and the pushed-out
// deadline.
type BreakResult struct {
	AdventureID     string    `json:"adventure_id"`
	BreakDate       time.Time `json:"break_date"`
	BreakEndDate    time.Time `json:"break_end_date"`
	NewDeadline     time.Time `json:"new_deadline"`
	BreaksRemaining int       `json:"breaks_remaining"`
}

// ScheduleBreak suspends round processing for one day and extends the
// deadline by the same day. Each call consumes one break credit; calling
// again while a break is pending books the following day, so two same-day
// calls cover two consecutive days. Only the adventure owner may schedule,
// and only while the adventure is active.
func (e *Engine) ScheduleBreak(adventureID, requesterID string) (*BreakResult, error) {
	var result *BreakResult
	err := e.DB.Transaction(func(tx *gorm.DB) error {
		var a models.Adventure
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, "id = ?", adventureID).Error; err != nil {
			return fmt.Errorf("failed to lock adventure %s: %w", adventureID, err)
		}

		if a.Status != models.AdventureStatusActive || a.CompletedAt != nil {
			return ErrMatchNotActive
		}
		if a.UserID != requesterID {
			return ErrNotOwner
		}
		if a.BreakDaysUsed >= models.MaxBreakDays {
			return ErrBreakLimitReached
		}

		var owner models.User
		if err := tx.Where("external_user_id = ?", a.UserID).First(&owner).Error; err != nil {
			return fmt.Errorf("failed to load adventure owner %s: %w", a.UserID, err)
		}
		today := localDate(e.now(), resolveLocation(owner.Timezone))

		// A pending unexpired break pushes the new covered day past it.
		covered := today
		if a.BreakEndDate != nil && dateOnly(*a.BreakEndDate).After(covered) {
			covered = dateOnly(*a.BreakEndDate)
		}
		end := covered.AddDate(0, 0, 1)

		a.IsOnBreak = true
		a.BreakEndDate = &end
		a.BreakDaysUsed++
		a.Deadline = dateOnly(a.Deadline).AddDate(0, 0, 1)
		if err := tx.Save(&a).Error; err != nil {
			return fmt.Errorf("failed to schedule break on adventure %s: %w", a.ID, err)
		}

		result = &BreakResult{
			AdventureID:     a.ID,
			BreakDate:       covered,
			BreakEndDate:    end,
			NewDeadline:     a.Deadline,
			BreaksRemaining: models.MaxBreakDays - a.BreakDaysUsed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("⏸️ Break scheduled on adventure %s: covering %s, deadline now %s (%d remaining)",
		result.AdventureID, result.BreakDate.Format("2006-01-02"), result.NewDeadline.Format("2006-01-02"), result.BreaksRemaining)
	return result, nil
}
