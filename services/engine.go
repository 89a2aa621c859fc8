package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-battle-system/models"
)

// Business-rule rejections. Handlers map these to 4xx; everything else is a
// persistence failure and surfaces as 500.
var (
	ErrNotParticipant    = errors.New("requester is not a participant of this match")
	ErrNotOwner          = errors.New("requester does not own this match")
	ErrMatchNotActive    = errors.New("match is not active")
	ErrMatchNotFinished  = errors.New("match still has rounds remaining")
	ErrBreakLimitReached = errors.New("break day limit reached")
)

// errRoundRaced means a concurrent caller closed the round first. The losing
// advance call stops quietly; the next tick resumes from committed state.
var errRoundRaced = errors.New("round closed by concurrent caller")

// Engine is the match progression and completion core. It is invoked
// redundantly by the hourly sweep and by lazy evaluation inside current-match
// reads; all correctness comes from row locks and the completion marker, not
// from in-process coordination.
type Engine struct {
	DB     *gorm.DB
	Badges *BadgeService // optional; awarded best-effort after finalization

	now func() time.Time
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{DB: db, now: time.Now}
}

// resolveLocation loads an IANA zone name, falling back to UTC for unknown or
// empty strings. Round closure must never fail on bad timezone data.
func resolveLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[Engine] ⚠️ unknown timezone %q, falling back to UTC", name)
		return time.UTC
	}
	return loc
}

// dateOnly truncates to day granularity, normalized to UTC midnight so date
// columns compare consistently regardless of scan location.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// localDate is the calendar date "now" falls on in loc, as a dateOnly value.
func localDate(now time.Time, loc *time.Location) time.Time {
	return dateOnly(now.In(loc))
}

// dayClosed reports whether roundDate has fully elapsed in every given zone.
// A day still in progress anywhere keeps the round open.
func dayClosed(now time.Time, roundDate time.Time, locs ...*time.Location) bool {
	for _, loc := range locs {
		if !localDate(now, loc).After(roundDate) {
			return false
		}
	}
	return true
}

func (e *Engine) userByExternalID(externalUserID string) (*models.User, error) {
	var u models.User
	if err := e.DB.Where("external_user_id = ?", externalUserID).First(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", externalUserID, err)
	}
	return &u, nil
}

// dayTasks loads one actor's task rows for a round date, split into the
// mandatory plan and optional extras.
func dayTasks(tx *gorm.DB, externalUserID string, date time.Time) (mandatory, optional []models.Task, err error) {
	var rows []models.Task
	if err := tx.Where("external_user_id = ? AND date = ?", externalUserID, date).
		Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load tasks for %s on %s: %w", externalUserID, date.Format("2006-01-02"), err)
	}
	for _, r := range rows {
		if r.IsMandatory {
			mandatory = append(mandatory, r)
		} else {
			optional = append(optional, r)
		}
	}
	return mandatory, optional, nil
}

// recordDiscoveries persists first-time effectiveness reveals. Write-once:
// conflicts on (user, actor_type, category) are ignored, never updated.
func recordDiscoveries(tx *gorm.DB, externalUserID, actorType string, discoveries []Discovery) error {
	for _, d := range discoveries {
		row := models.EffectivenessDiscovery{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			ActorType:      actorType,
			Category:       d.Category,
			Tier:           d.Tier,
			Multiplier:     d.Multiplier,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "actor_type"}, {Name: "category"}},
			DoNothing: true,
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to record discovery %s/%s: %w", actorType, d.Category, err)
		}
	}
	return nil
}

// ensureStatsTx fetches a user's aggregate stats row inside tx, creating it
// on first use.
func ensureStatsTx(tx *gorm.DB, externalUserID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := tx.Where("external_user_id = ?", externalUserID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.UserStats{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Level:          1,
		}
		if err := tx.Create(&stats).Error; err != nil {
			return nil, fmt.Errorf("failed to create stats row for %s: %w", externalUserID, err)
		}
		return &stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stats row for %s: %w", externalUserID, err)
	}
	return &stats, nil
}

// lockStats takes the stats row FOR UPDATE so concurrent transactions
// mutating the same user's aggregates serialize instead of losing writes.
func lockStats(tx *gorm.DB, externalUserID string) (*models.UserStats, error) {
	if _, err := ensureStatsTx(tx, externalUserID); err != nil {
		return nil, err
	}
	var stats models.UserStats
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_user_id = ?", externalUserID).
		First(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to lock stats row for %s: %w", externalUserID, err)
	}
	return &stats, nil
}

func (e *Engine) awardBadges(externalUserIDs ...string) {
	if e.Badges == nil {
		return
	}
	for _, id := range externalUserIDs {
		if err := e.Badges.AutoAwardBadges(id); err != nil {
			log.Printf("[Engine] badge check failed for %s: %v", id, err)
		}
	}
}
