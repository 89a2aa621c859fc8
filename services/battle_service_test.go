package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"habit-battle-system/models"
)

func TestCreateChallenge(t *testing.T) {
	db := newTestDB(t)
	svc := NewBattleService(db, NewEngine(db))

	createTestUser(t, db, "walt", "UTC", ActorTypeSloth)
	createTestUser(t, db, "xena", "UTC", ActorTypeChaos)
	banned := createTestUser(t, db, "yuri", "UTC", ActorTypeDoubt)
	banned.IsBanned = true
	if err := db.Save(banned).Error; err != nil {
		t.Fatalf("ban user: %v", err)
	}

	if _, err := svc.CreateChallenge("walt", "walt", 5); !errors.Is(err, ErrChallengeSelf) {
		t.Fatalf("self challenge err = %v, want ErrChallengeSelf", err)
	}
	if _, err := svc.CreateChallenge("walt", "xena", 2); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("short duration err = %v, want ErrInvalidDuration", err)
	}
	if _, err := svc.CreateChallenge("walt", "xena", 8); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("long duration err = %v, want ErrInvalidDuration", err)
	}
	if _, err := svc.CreateChallenge("walt", "ghost", 5); err == nil || !strings.Contains(err.Error(), "opponent not found") {
		t.Fatalf("missing opponent err = %v", err)
	}
	if _, err := svc.CreateChallenge("walt", "yuri", 5); err == nil || !strings.Contains(err.Error(), "opponent not available") {
		t.Fatalf("banned opponent err = %v", err)
	}

	battle, err := svc.CreateChallenge("walt", "xena", 5)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if battle.Status != models.BattleStatusPending || battle.StartDate != nil {
		t.Fatalf("new challenge = %+v, want pending with no start date", battle)
	}
	if battle.Actor1ID != "walt" || battle.Actor2ID != "xena" {
		t.Fatalf("participants = %s vs %s", battle.Actor1ID, battle.Actor2ID)
	}

	// A pending invite blocks nobody.
	if stats := loadStats(t, db, "walt"); stats.CurrentBattleID != nil {
		t.Fatalf("pending challenge marked challenger busy")
	}
	if _, err := svc.CreateChallenge("xena", "walt", 3); err != nil {
		t.Fatalf("second pending challenge: %v", err)
	}

	// An active battle blocks new challenges from either side.
	if err := db.Model(&models.UserStats{}).
		Where("external_user_id = ?", "walt").
		Update("current_battle_id", battle.ID).Error; err != nil {
		t.Fatalf("mark busy: %v", err)
	}
	if _, err := svc.CreateChallenge("walt", "xena", 5); !errors.Is(err, ErrAlreadyInBattle) {
		t.Fatalf("busy challenger err = %v, want ErrAlreadyInBattle", err)
	}
	if _, err := svc.CreateChallenge("xena", "walt", 5); !errors.Is(err, ErrAlreadyInBattle) {
		t.Fatalf("busy opponent err = %v, want ErrAlreadyInBattle", err)
	}
}

func TestAcceptChallenge(t *testing.T) {
	db := newTestDB(t)
	e := NewEngine(db)
	e.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	svc := NewBattleService(db, e)

	createTestUser(t, db, "nina", "UTC", ActorTypeSloth)
	createTestUser(t, db, "omar", "UTC", ActorTypeChaos)

	battle, err := svc.CreateChallenge("nina", "omar", 5)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}

	if _, err := svc.AcceptChallenge(battle.ID, "stranger"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("stranger accept err = %v, want ErrNotParticipant", err)
	}
	if _, err := svc.AcceptChallenge(battle.ID, "nina"); !errors.Is(err, ErrNotInvitee) {
		t.Fatalf("challenger accept err = %v, want ErrNotInvitee", err)
	}

	accepted, err := svc.AcceptChallenge(battle.ID, "omar")
	if err != nil {
		t.Fatalf("AcceptChallenge: %v", err)
	}
	if accepted.Status != models.BattleStatusActive {
		t.Fatalf("status = %s, want active", accepted.Status)
	}
	// Rounds start on the next UTC day so both sides get a full first day.
	if accepted.StartDate == nil || !accepted.StartDate.Equal(utcDate(2026, time.March, 3)) {
		t.Fatalf("StartDate = %v, want tomorrow", accepted.StartDate)
	}
	for _, id := range []string{"nina", "omar"} {
		stats := loadStats(t, db, id)
		if stats.CurrentBattleID == nil || *stats.CurrentBattleID != battle.ID {
			t.Fatalf("%s not marked busy after accept", id)
		}
	}

	if _, err := svc.AcceptChallenge(battle.ID, "omar"); !errors.Is(err, ErrInviteNotPending) {
		t.Fatalf("re-accept err = %v, want ErrInviteNotPending", err)
	}
}

func TestAcceptChallengeWhileBusy(t *testing.T) {
	db := newTestDB(t)
	e := NewEngine(db)
	e.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	svc := NewBattleService(db, e)

	createTestUser(t, db, "pia", "UTC", ActorTypeSloth)
	createTestUser(t, db, "rick", "UTC", ActorTypeChaos)
	createTestUser(t, db, "quincy", "UTC", ActorTypeGloom)

	first, err := svc.CreateChallenge("pia", "quincy", 3)
	if err != nil {
		t.Fatalf("first challenge: %v", err)
	}
	second, err := svc.CreateChallenge("rick", "quincy", 3)
	if err != nil {
		t.Fatalf("second challenge: %v", err)
	}

	if _, err := svc.AcceptChallenge(first.ID, "quincy"); err != nil {
		t.Fatalf("accept first: %v", err)
	}
	if _, err := svc.AcceptChallenge(second.ID, "quincy"); !errors.Is(err, ErrAlreadyInBattle) {
		t.Fatalf("accept while busy err = %v, want ErrAlreadyInBattle", err)
	}
	// The failed accept must not have marked the other challenger busy.
	if stats := loadStats(t, db, "rick"); stats.CurrentBattleID != nil {
		t.Fatalf("rick marked busy by a rejected accept")
	}
}

func TestDeclineChallenge(t *testing.T) {
	db := newTestDB(t)
	svc := NewBattleService(db, NewEngine(db))

	createTestUser(t, db, "sara", "UTC", ActorTypeSloth)
	createTestUser(t, db, "tom", "UTC", ActorTypeChaos)

	battle, err := svc.CreateChallenge("sara", "tom", 4)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if _, err := svc.DeclineChallenge(battle.ID, "stranger"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("stranger decline err = %v, want ErrNotParticipant", err)
	}
	declined, err := svc.DeclineChallenge(battle.ID, "tom")
	if err != nil {
		t.Fatalf("DeclineChallenge: %v", err)
	}
	if declined.Status != models.BattleStatusDeclined {
		t.Fatalf("status = %s, want declined", declined.Status)
	}
	if _, err := svc.AcceptChallenge(battle.ID, "tom"); !errors.Is(err, ErrInviteNotPending) {
		t.Fatalf("accept after decline err = %v, want ErrInviteNotPending", err)
	}

	// The challenger withdrawing lands on the same declined status.
	withdraw, err := svc.CreateChallenge("sara", "tom", 4)
	if err != nil {
		t.Fatalf("second challenge: %v", err)
	}
	if _, err := svc.DeclineChallenge(withdraw.ID, "sara"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
}

func TestExpireStaleInvites(t *testing.T) {
	db := newTestDB(t)
	e := NewEngine(db)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	svc := NewBattleService(db, e)

	createTestUser(t, db, "vic", "UTC", ActorTypeSloth)
	createTestUser(t, db, "wes", "UTC", ActorTypeChaos)

	stale, err := svc.CreateChallenge("vic", "wes", 3)
	if err != nil {
		t.Fatalf("stale challenge: %v", err)
	}
	fresh, err := svc.CreateChallenge("wes", "vic", 3)
	if err != nil {
		t.Fatalf("fresh challenge: %v", err)
	}
	backdate := func(id string, createdAt time.Time) {
		if err := db.Model(&models.Battle{}).Where("id = ?", id).
			Update("created_at", createdAt).Error; err != nil {
			t.Fatalf("backdate battle: %v", err)
		}
	}
	backdate(stale.ID, now.AddDate(0, 0, -8))
	backdate(fresh.ID, now.AddDate(0, 0, -1))

	expired, err := svc.ExpireStaleInvites()
	if err != nil {
		t.Fatalf("ExpireStaleInvites: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	var reloaded models.Battle
	if err := db.First(&reloaded, "id = ?", stale.ID).Error; err != nil {
		t.Fatalf("reload stale: %v", err)
	}
	if reloaded.Status != models.BattleStatusDeclined {
		t.Fatalf("stale invite status = %s, want declined", reloaded.Status)
	}
	var reloadedFresh models.Battle
	if err := db.First(&reloadedFresh, "id = ?", fresh.ID).Error; err != nil {
		t.Fatalf("reload fresh: %v", err)
	}
	if reloadedFresh.Status != models.BattleStatusPending {
		t.Fatalf("fresh invite status = %s, want still pending", reloadedFresh.Status)
	}

	// Nothing left to expire on the next sweep.
	expired, err = svc.ExpireStaleInvites()
	if err != nil {
		t.Fatalf("repeat ExpireStaleInvites: %v", err)
	}
	if expired != 0 {
		t.Fatalf("second sweep expired = %d, want 0", expired)
	}

	invites, err := svc.PendingInvites("vic")
	if err != nil {
		t.Fatalf("PendingInvites: %v", err)
	}
	if len(invites) != 1 || invites[0].ID != fresh.ID {
		t.Fatalf("pending invites = %+v, want just the fresh one", invites)
	}
}

func TestCurrentBattleLazyAdvance(t *testing.T) {
	db := newTestDB(t)
	e := NewEngine(db)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	svc := NewBattleService(db, e)

	createTestUser(t, db, "ben", "UTC", ActorTypeSloth)
	createTestUser(t, db, "cal", "UTC", ActorTypeChaos)

	battle, err := svc.CreateChallenge("ben", "cal", 3)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if _, err := svc.AcceptChallenge(battle.ID, "cal"); err != nil {
		t.Fatalf("AcceptChallenge: %v", err)
	}

	// Neither side completes anything and the whole window passes.
	now = time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)

	current, closed, err := svc.CurrentBattle("ben")
	if err != nil {
		t.Fatalf("CurrentBattle: %v", err)
	}
	if closed != 3 {
		t.Fatalf("closed = %d, want all 3 rounds", closed)
	}
	if current.Status != models.BattleStatusCompleted || !current.IsDraw {
		t.Fatalf("battle = %+v, want a completed scoreless draw", current)
	}

	// Completion released both participants.
	current, closed, err = svc.CurrentBattle("ben")
	if err != nil {
		t.Fatalf("second CurrentBattle: %v", err)
	}
	if current != nil || closed != 0 {
		t.Fatalf("CurrentBattle after completion = %+v, want none", current)
	}

	if _, err := svc.GetBattle(battle.ID, "stranger"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("stranger GetBattle err = %v, want ErrNotParticipant", err)
	}
	got, err := svc.GetBattle(battle.ID, "ben")
	if err != nil {
		t.Fatalf("GetBattle: %v", err)
	}
	if got.Status != models.BattleStatusCompleted {
		t.Fatalf("GetBattle status = %s", got.Status)
	}

	rounds, err := svc.Rounds(battle.ID, "cal")
	if err != nil {
		t.Fatalf("Rounds: %v", err)
	}
	if len(rounds) != 6 {
		t.Fatalf("round rows = %d, want 3 rounds x 2 sides", len(rounds))
	}
	for i := 1; i < len(rounds); i++ {
		if rounds[i].RoundIndex < rounds[i-1].RoundIndex {
			t.Fatalf("rounds out of order at %d", i)
		}
	}
	if _, err := svc.Rounds(battle.ID, "stranger"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("stranger Rounds err = %v, want ErrNotParticipant", err)
	}

	history, total, err := svc.History("ben", 1, 20)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 1 || len(history) != 1 || history[0].ID != battle.ID {
		t.Fatalf("history = %d rows (total %d)", len(history), total)
	}
}
