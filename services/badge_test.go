package services

import (
	"testing"

	"habit-battle-system/models"
)

func TestSeedBadgeTypes(t *testing.T) {
	db := newTestDB(t)
	svc := NewBadgeService(db)

	if err := svc.SeedBadgeTypes(); err != nil {
		t.Fatalf("SeedBadgeTypes: %v", err)
	}
	if n := countRows(t, db, &models.BadgeType{}, "1 = 1"); n != int64(len(models.BadgeTriggers)) {
		t.Fatalf("badge types = %d, want %d", n, len(models.BadgeTriggers))
	}

	// Reseeding must not duplicate or overwrite the catalog.
	if err := svc.SeedBadgeTypes(); err != nil {
		t.Fatalf("repeat SeedBadgeTypes: %v", err)
	}
	if n := countRows(t, db, &models.BadgeType{}, "1 = 1"); n != int64(len(models.BadgeTriggers)) {
		t.Fatalf("badge types after reseed = %d", n)
	}

	var first models.BadgeType
	if err := db.First(&first, "code = ?", "FIRST_BLOOD").Error; err != nil {
		t.Fatalf("load FIRST_BLOOD: %v", err)
	}
	if first.Name != "First Blood" || first.Rarity != "common" {
		t.Fatalf("FIRST_BLOOD = %+v", first)
	}
	if first.Threshold["battle_wins"] != 1 {
		t.Fatalf("FIRST_BLOOD threshold = %v", first.Threshold)
	}
}

func TestMeetsThreshold(t *testing.T) {
	svc := &BadgeService{}
	cases := []struct {
		name  string
		stats models.UserStats
		req   map[string]int64
		want  bool
	}{
		{
			name:  "single key met",
			stats: models.UserStats{BattleWins: 3},
			req:   map[string]int64{"battle_wins": 1},
			want:  true,
		},
		{
			name:  "single key short",
			stats: models.UserStats{BattleWins: 0},
			req:   map[string]int64{"battle_wins": 1},
			want:  false,
		},
		{
			name:  "total matches sums every match kind",
			stats: models.UserStats{BattleCount: 10, MonstersDefeated: 8, MonstersEscaped: 6},
			req:   map[string]int64{"total_matches": 25},
			want:  false,
		},
		{
			name:  "total matches at the line",
			stats: models.UserStats{BattleCount: 10, MonstersDefeated: 9, MonstersEscaped: 6},
			req:   map[string]int64{"total_matches": 25},
			want:  true,
		},
		{
			name:  "every key must pass",
			stats: models.UserStats{BattleWins: 5, Level: 1},
			req:   map[string]int64{"battle_wins": 1, "level": 10},
			want:  false,
		},
		{
			name:  "tier watermark",
			stats: models.UserStats{HighestTierDefeated: 4},
			req:   map[string]int64{"highest_tier_defeated": 4},
			want:  true,
		},
		{
			name:  "unknown key never matches",
			stats: models.UserStats{BattleWins: 100},
			req:   map[string]int64{"coins_hoarded": 1},
			want:  false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := svc.meetsThreshold(&tc.stats, tc.req); got != tc.want {
				t.Fatalf("meetsThreshold(%v) = %v, want %v", tc.req, got, tc.want)
			}
		})
	}
}

func TestAutoAwardBadges(t *testing.T) {
	db := newTestDB(t)
	svc := NewBadgeService(db)
	if err := svc.SeedBadgeTypes(); err != nil {
		t.Fatalf("seed badge types: %v", err)
	}

	seedStatsRow(t, db, "uma", func(s *models.UserStats) { s.BattleWins = 1; s.BattleCount = 1 })

	if err := svc.AutoAwardBadges("uma"); err != nil {
		t.Fatalf("AutoAwardBadges: %v", err)
	}
	if n := countRows(t, db, &models.UserBadge{}, "external_user_id = ?", "uma"); n != 1 {
		t.Fatalf("badges after first win = %d, want 1", n)
	}
	var firstBlood models.BadgeType
	if err := db.First(&firstBlood, "code = ?", "FIRST_BLOOD").Error; err != nil {
		t.Fatalf("load FIRST_BLOOD: %v", err)
	}
	if n := countRows(t, db, &models.UserBadge{}, "external_user_id = ? AND badge_type_id = ?", "uma", firstBlood.ID); n != 1 {
		t.Fatalf("first win did not award FIRST_BLOOD")
	}

	// Awards are one-shot.
	if err := svc.AutoAwardBadges("uma"); err != nil {
		t.Fatalf("repeat AutoAwardBadges: %v", err)
	}
	if n := countRows(t, db, &models.UserBadge{}, "external_user_id = ?", "uma"); n != 1 {
		t.Fatalf("badges duplicated on recheck: %d", n)
	}

	// A maxed-out record clears every trigger in the catalog.
	err := db.Model(&models.UserStats{}).
		Where("external_user_id = ?", "uma").
		Updates(map[string]interface{}{
			"battle_wins":           10,
			"battle_count":          10,
			"monsters_defeated":     10,
			"monsters_escaped":      5,
			"highest_tier_defeated": 4,
			"level":                 10,
		}).Error
	if err != nil {
		t.Fatalf("max out stats: %v", err)
	}
	if err := svc.AutoAwardBadges("uma"); err != nil {
		t.Fatalf("AutoAwardBadges maxed: %v", err)
	}
	if n := countRows(t, db, &models.UserBadge{}, "external_user_id = ?", "uma"); n != int64(len(models.BadgeTriggers)) {
		t.Fatalf("badges = %d, want the full catalog of %d", n, len(models.BadgeTriggers))
	}
}

func TestListUserBadges(t *testing.T) {
	db := newTestDB(t)
	svc := NewBadgeService(db)
	if err := svc.SeedBadgeTypes(); err != nil {
		t.Fatalf("seed badge types: %v", err)
	}

	seedStatsRow(t, db, "vera", func(s *models.UserStats) { s.BattleWins = 10; s.BattleCount = 12 })
	if err := svc.AutoAwardBadges("vera"); err != nil {
		t.Fatalf("AutoAwardBadges: %v", err)
	}

	badges, err := svc.ListUserBadges("vera")
	if err != nil {
		t.Fatalf("ListUserBadges: %v", err)
	}
	if len(badges) != 2 {
		t.Fatalf("badges = %d, want FIRST_BLOOD and RIVAL_CRUSHER", len(badges))
	}
	seen := map[string]bool{}
	for _, b := range badges {
		seen[b.Code] = true
		if b.Name == "" || b.Rarity == "" || b.AwardedAt == "" {
			t.Fatalf("badge view missing catalog fields: %+v", b)
		}
	}
	if !seen["FIRST_BLOOD"] || !seen["RIVAL_CRUSHER"] {
		t.Fatalf("badge codes = %v", seen)
	}

	empty, err := svc.ListUserBadges("nobody")
	if err != nil {
		t.Fatalf("ListUserBadges empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("empty list = %#v, want empty non-nil slice", empty)
	}
}
