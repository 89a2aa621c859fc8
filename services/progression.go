package services

import (
	"math"
	"time"

	"habit-battle-system/models"
)

// BaseXPPerLevel anchors the level curve. XP to clear level n grows as n^1.2
// so early levels come fast and the curve flattens out around level 30.
const BaseXPPerLevel = 100

// xpForNextLevel returns the XP required to go from currentLevel to the next.
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// levelThreshold is the lifetime XP at which currentLevel is cleared.
func levelThreshold(currentLevel int) int64 {
	return int64(BaseXPPerLevel)*int64(currentLevel) + xpForNextLevel(currentLevel)
}

// applyLevel walks the stats row up the curve after an XP change. Levels only
// move forward; XP never decreases so no down-leveling path exists.
func applyLevel(stats *models.UserStats, now time.Time) {
	for stats.TotalXP >= levelThreshold(stats.Level) {
		stats.Level++
		t := now
		stats.LastLevelUpAt = &t
	}
}

// LevelForXP computes the level a lifetime XP total lands on. Used by tests
// and profile payloads; the finalizer mutates via applyLevel instead.
func LevelForXP(totalXP int64) int {
	level := 1
	for totalXP >= levelThreshold(level) {
		level++
	}
	return level
}

// LevelProgress describes how far into the current level a user is.
type LevelProgress struct {
	Level       int   `json:"level"`
	TotalXP     int64 `json:"total_xp"`
	CurrentXP   int64 `json:"current_xp"`
	RequiredXP  int64 `json:"required_xp"`
	NextLevelAt int64 `json:"next_level_at"`
}

// ProgressForStats builds the profile-facing level payload.
func ProgressForStats(stats *models.UserStats) LevelProgress {
	next := levelThreshold(stats.Level)
	var prev int64
	if stats.Level > 1 {
		prev = levelThreshold(stats.Level - 1)
	}
	return LevelProgress{
		Level:       stats.Level,
		TotalXP:     stats.TotalXP,
		CurrentXP:   stats.TotalXP - prev,
		RequiredXP:  next - prev,
		NextLevelAt: next,
	}
}
