package services

import (
	"path/filepath"
	"testing"
	"time"
	// Zone lookups must work on hosts without a tzdata package.
	_ "time/tzdata"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"habit-battle-system/models"
)

// newTestDB opens a throwaway sqlite database with the full schema. The
// glebarez dialector ignores row-locking clauses, so the engine's FOR UPDATE
// paths run unchanged here.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "engine.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.UserStats{},
		&models.Monster{},
		&models.Battle{},
		&models.Adventure{},
		&models.MatchRound{},
		&models.Task{},
		&models.TaskTemplate{},
		&models.EffectivenessDiscovery{},
		&models.MatchReward{},
		&models.BadgeType{},
		&models.UserBadge{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, externalID, timezone, avatarType string) *models.User {
	t.Helper()
	u := &models.User{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Username:       "user-" + externalID,
		Email:          externalID + "@habit.test",
		Timezone:       timezone,
		AvatarType:     avatarType,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", externalID, err)
	}
	return u
}

// seedStatsRow inserts a stats row directly so tests can start from a known
// aggregate state instead of the zero row ensureStatsTx would create.
func seedStatsRow(t *testing.T, db *gorm.DB, externalID string, mutate func(*models.UserStats)) *models.UserStats {
	t.Helper()
	stats := &models.UserStats{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Level:          1,
	}
	if mutate != nil {
		mutate(stats)
	}
	if err := db.Create(stats).Error; err != nil {
		t.Fatalf("seed stats for %s: %v", externalID, err)
	}
	return stats
}

// seedTask inserts a task row directly, bypassing the daily planner. date must
// be a dateOnly value so the advancer's round queries find it.
func seedTask(t *testing.T, db *gorm.DB, externalID string, date time.Time, category string, mandatory, completed bool) *models.Task {
	t.Helper()
	task := &models.Task{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Date:           date,
		Title:          category + " task",
		Category:       category,
		IsMandatory:    mandatory,
		Completed:      completed,
	}
	if completed {
		done := date.Add(12 * time.Hour)
		task.CompletedAt = &done
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("seed task for %s: %v", externalID, err)
	}
	return task
}

func loadStats(t *testing.T, db *gorm.DB, externalID string) *models.UserStats {
	t.Helper()
	var stats models.UserStats
	if err := db.Where("external_user_id = ?", externalID).First(&stats).Error; err != nil {
		t.Fatalf("load stats for %s: %v", externalID, err)
	}
	return &stats
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

func utcDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
