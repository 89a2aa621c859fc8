// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"habit-battle-system/models"
)

// StartProgressionSweeper runs the hourly catch-up over every active match.
// This is the background half of the two trigger paths; the other half is
// lazy advancement on current-match reads. Both funnel into the same
// idempotent engine calls, so overlap is harmless.
func (e *Engine) StartProgressionSweeper(battles *BattleService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every hour: close overdue rounds and finalize terminal matches. Hourly
	// because a round only becomes closable when a calendar day rolls over in
	// some timezone, which happens at most once an hour worldwide.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			e.SweepOnce(battles)
		}),
	)
}

// SweepOnce advances every active battle and adventure one pass and reports
// how many rounds it closed. Errors on one match never stop the sweep; the
// next pass retries from committed state.
func (e *Engine) SweepOnce(battles *BattleService) int {
	start := time.Now()
	roundsClosed := 0

	var activeBattles []models.Battle
	if err := e.DB.Where("status = ?", models.BattleStatusActive).Find(&activeBattles).Error; err != nil {
		log.Printf("[Sweeper] DB error listing battles: %v", err)
	} else {
		for i := range activeBattles {
			closed, err := e.AdvanceBattle(&activeBattles[i])
			roundsClosed += closed
			if err != nil {
				metricSweepErrors.WithLabelValues(models.MatchTypeBattle).Inc()
				log.Printf("[Sweeper] Failed to advance battle %s: %v", activeBattles[i].ID, err)
			}
		}
	}

	var activeAdventures []models.Adventure
	if err := e.DB.Where("status = ?", models.AdventureStatusActive).Find(&activeAdventures).Error; err != nil {
		log.Printf("[Sweeper] DB error listing adventures: %v", err)
	} else {
		for i := range activeAdventures {
			closed, err := e.AdvanceAdventure(&activeAdventures[i])
			roundsClosed += closed
			if err != nil {
				metricSweepErrors.WithLabelValues(models.MatchTypeAdventure).Inc()
				log.Printf("[Sweeper] Failed to advance adventure %s: %v", activeAdventures[i].ID, err)
			}
		}
	}

	if battles != nil {
		if _, err := battles.ExpireStaleInvites(); err != nil {
			log.Printf("[Sweeper] Failed to expire invites: %v", err)
		}
	}

	metricSweepDuration.Observe(time.Since(start).Seconds())
	if roundsClosed > 0 {
		log.Printf("✅ Sweep done: %d rounds closed across %d battles, %d adventures in %s",
			roundsClosed, len(activeBattles), len(activeAdventures), time.Since(start).Round(time.Millisecond))
	}
	return roundsClosed
}
