package services

import (
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"habit-battle-system/models"
)

func taskCategories(tasks []models.Task) []string {
	cats := make([]string, 0, len(tasks))
	for _, task := range tasks {
		cats = append(cats, task.Category)
	}
	sort.Strings(cats)
	return cats
}

func taskIDs(tasks []models.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	sort.Strings(ids)
	return ids
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQuotaForDate(t *testing.T) {
	cases := []struct {
		date time.Time
		want int
	}{
		{utcDate(2026, time.March, 10), 3}, // day 69
		{utcDate(2026, time.March, 11), 4}, // day 70
		{utcDate(2026, time.March, 12), 5}, // day 71
	}
	for _, tc := range cases {
		if got := quotaForDate(tc.date); got != tc.want {
			t.Errorf("quotaForDate(%s) = %d, want %d", tc.date.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestEnsureDefaultTemplates(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	createTestUser(t, db, "grace", "UTC", ActorTypeSloth)

	if err := svc.EnsureDefaultTemplates("grace"); err != nil {
		t.Fatalf("EnsureDefaultTemplates: %v", err)
	}
	if n := countRows(t, db, &models.TaskTemplate{}, "external_user_id = ?", "grace"); n != int64(len(DefaultTemplates)) {
		t.Fatalf("templates = %d, want %d", n, len(DefaultTemplates))
	}

	// Repeated seeding never duplicates the starter set.
	if err := svc.EnsureDefaultTemplates("grace"); err != nil {
		t.Fatalf("repeat EnsureDefaultTemplates: %v", err)
	}
	if n := countRows(t, db, &models.TaskTemplate{}, "external_user_id = ?", "grace"); n != int64(len(DefaultTemplates)) {
		t.Fatalf("templates after reseed = %d, want %d", n, len(DefaultTemplates))
	}

	templates, err := svc.ListTemplates("grace")
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	for _, tpl := range templates {
		if !tpl.Active {
			t.Fatalf("starter template %q seeded inactive", tpl.Title)
		}
	}
}

// orderTemplates rewrites created_at with whole-second spacing so the
// rotation order is unambiguous. Rows seeded inside one test can otherwise
// share an instant.
func orderTemplates(t *testing.T, svc *TaskService, externalUserID string, order []string) {
	t.Helper()
	templates, err := svc.ListTemplates(externalUserID)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tpl := range templates {
		pos := -1
		for i, cat := range order {
			if tpl.Category == cat {
				pos = i
				break
			}
		}
		if pos < 0 {
			t.Fatalf("template category %q not in expected order", tpl.Category)
		}
		err := svc.DB.Model(&models.TaskTemplate{}).
			Where("id = ?", tpl.ID).
			Update("created_at", base.Add(time.Duration(pos)*time.Second)).Error
		if err != nil {
			t.Fatalf("space template timestamps: %v", err)
		}
	}
}

func TestEnsureDailyPlanRotation(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	createTestUser(t, db, "grace", "UTC", ActorTypeSloth)

	if err := svc.EnsureDefaultTemplates("grace"); err != nil {
		t.Fatalf("seed templates: %v", err)
	}
	orderTemplates(t, svc, "grace", []string{
		models.TaskCategoryFitness,
		models.TaskCategoryLearning,
		models.TaskCategoryWork,
		models.TaskCategoryChores,
		models.TaskCategoryMindfulness,
	})

	// Day 69 of 2026: quota 3, rotation offset 4 of 5.
	date := utcDate(2026, time.March, 10)
	tasks, err := svc.EnsureDailyPlan("grace", date)
	if err != nil {
		t.Fatalf("EnsureDailyPlan: %v", err)
	}
	want := []string{models.TaskCategoryFitness, models.TaskCategoryLearning, models.TaskCategoryMindfulness}
	if got := taskCategories(tasks); !sameStrings(got, want) {
		t.Fatalf("plan categories = %v, want %v", got, want)
	}
	for _, task := range tasks {
		if !task.IsMandatory || task.TemplateID == nil {
			t.Fatalf("plan task %q not a mandatory template task", task.Title)
		}
		if !dateOnly(task.Date).Equal(date) {
			t.Fatalf("plan task date = %v, want %v", task.Date, date)
		}
	}

	// The same date always yields the same rows.
	again, err := svc.EnsureDailyPlan("grace", date)
	if err != nil {
		t.Fatalf("repeat EnsureDailyPlan: %v", err)
	}
	if !sameStrings(taskIDs(tasks), taskIDs(again)) {
		t.Fatalf("plan rematerialized with new rows: %v vs %v", taskIDs(tasks), taskIDs(again))
	}
}

func TestEnsureDailyPlanClampsQuota(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	createTestUser(t, db, "hanna", "UTC", ActorTypeSloth)

	for _, category := range []string{models.TaskCategoryWork, models.TaskCategoryFitness} {
		if _, err := svc.CreateTemplate("hanna", "Daily "+category, category); err != nil {
			t.Fatalf("CreateTemplate: %v", err)
		}
	}

	// Day 70 asks for 4 mandatory tasks but only 2 templates exist.
	tasks, err := svc.EnsureDailyPlan("hanna", utcDate(2026, time.March, 11))
	if err != nil {
		t.Fatalf("EnsureDailyPlan: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("plan size = %d, want quota clamped to 2", len(tasks))
	}
}

func TestEnsureDailyPlanSkipsInactiveTemplates(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	createTestUser(t, db, "ivan", "UTC", ActorTypeSloth)

	if err := svc.EnsureDefaultTemplates("ivan"); err != nil {
		t.Fatalf("seed templates: %v", err)
	}
	orderTemplates(t, svc, "ivan", []string{
		models.TaskCategoryFitness,
		models.TaskCategoryLearning,
		models.TaskCategoryWork,
		models.TaskCategoryChores,
		models.TaskCategoryMindfulness,
	})

	templates, err := svc.ListTemplates("ivan")
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	paused := false
	for _, tpl := range templates {
		if tpl.Category == models.TaskCategoryFitness {
			off := false
			if _, err := svc.UpdateTemplate(tpl.ID, "ivan", nil, nil, &off); err != nil {
				t.Fatalf("pause template: %v", err)
			}
			paused = true
		}
	}
	if !paused {
		t.Fatalf("no fitness template found to pause")
	}

	// Day 72: quota 3, offset 0 over the 4 remaining active templates.
	tasks, err := svc.EnsureDailyPlan("ivan", utcDate(2026, time.March, 13))
	if err != nil {
		t.Fatalf("EnsureDailyPlan: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("plan size = %d, want 3", len(tasks))
	}
	for _, task := range tasks {
		if task.Category == models.TaskCategoryFitness {
			t.Fatalf("paused template still materialized into the plan")
		}
	}
}

func TestCreateOptionalTask(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	createTestUser(t, db, "olga", "UTC", ActorTypeSloth)

	task, err := svc.CreateOptionalTask("olga", "  Walk the dog  ", models.TaskCategoryFitness)
	if err != nil {
		t.Fatalf("CreateOptionalTask: %v", err)
	}
	if task.Title != "Walk the dog" {
		t.Fatalf("title = %q, want trimmed", task.Title)
	}
	if task.IsMandatory || task.TemplateID != nil {
		t.Fatalf("optional task marked mandatory: %+v", task)
	}
	if !dateOnly(task.Date).Equal(utcDate(2026, time.March, 10)) {
		t.Fatalf("task date = %v", task.Date)
	}

	if _, err := svc.CreateOptionalTask("olga", "Read a chapter", models.TaskCategoryLearning); err != nil {
		t.Fatalf("second optional task: %v", err)
	}
	if _, err := svc.CreateOptionalTask("olga", "One more", models.TaskCategoryWork); !errors.Is(err, ErrOptionalLimit) {
		t.Fatalf("third optional task err = %v, want ErrOptionalLimit", err)
	}

	if _, err := svc.CreateOptionalTask("olga", "Mystery", "gardening"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("bad category err = %v, want ErrInvalidCategory", err)
	}
	if _, err := svc.CreateOptionalTask("olga", "   ", models.TaskCategoryWork); err == nil {
		t.Fatalf("blank title accepted")
	}
	if _, err := svc.CreateOptionalTask("olga", strings.Repeat("x", 161), models.TaskCategoryWork); err == nil {
		t.Fatalf("oversized title accepted")
	}
}

func TestSetTaskCompletion(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	createTestUser(t, db, "pete", "UTC", ActorTypeSloth)

	stale := seedTask(t, db, "pete", utcDate(2026, time.March, 9), models.TaskCategoryWork, true, false)
	if _, err := svc.SetTaskCompletion(stale.ID, "pete", true); !errors.Is(err, ErrNotToday) {
		t.Fatalf("yesterday's task err = %v, want ErrNotToday", err)
	}

	task := seedTask(t, db, "pete", utcDate(2026, time.March, 10), models.TaskCategoryWork, true, false)
	if _, err := svc.SetTaskCompletion(task.ID, "mallory", true); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner err = %v, want ErrNotOwner", err)
	}

	updated, err := svc.SetTaskCompletion(task.ID, "pete", true)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !updated.Completed || updated.CompletedAt == nil || !updated.CompletedAt.Equal(clock) {
		t.Fatalf("completion state = %+v", updated)
	}

	updated, err = svc.SetTaskCompletion(task.ID, "pete", false)
	if err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	if updated.Completed || updated.CompletedAt != nil {
		t.Fatalf("uncompletion left state = %+v", updated)
	}

	var persisted models.Task
	if err := db.First(&persisted, "id = ?", task.ID).Error; err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if persisted.Completed || persisted.CompletedAt != nil {
		t.Fatalf("persisted state = %+v", persisted)
	}
}

func TestDeleteOptionalTask(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	createTestUser(t, db, "quinn", "UTC", ActorTypeSloth)

	mandatory := seedTask(t, db, "quinn", utcDate(2026, time.March, 10), models.TaskCategoryWork, true, false)
	if err := svc.DeleteOptionalTask(mandatory.ID, "quinn"); !errors.Is(err, ErrTaskImmutable) {
		t.Fatalf("mandatory delete err = %v, want ErrTaskImmutable", err)
	}

	stale := seedTask(t, db, "quinn", utcDate(2026, time.March, 9), models.TaskCategoryWork, false, false)
	if err := svc.DeleteOptionalTask(stale.ID, "quinn"); !errors.Is(err, ErrNotToday) {
		t.Fatalf("yesterday's optional delete err = %v, want ErrNotToday", err)
	}

	optional := seedTask(t, db, "quinn", utcDate(2026, time.March, 10), models.TaskCategoryWork, false, false)
	if err := svc.DeleteOptionalTask(optional.ID, "mallory"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner delete err = %v, want ErrNotOwner", err)
	}
	if err := svc.DeleteOptionalTask(optional.ID, "quinn"); err != nil {
		t.Fatalf("DeleteOptionalTask: %v", err)
	}
	if n := countRows(t, db, &models.Task{}, "id = ?", optional.ID); n != 0 {
		t.Fatalf("optional task still present after delete")
	}
}

func TestTemplateLimit(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	createTestUser(t, db, "rita", "UTC", ActorTypeSloth)

	if err := svc.EnsureDefaultTemplates("rita"); err != nil {
		t.Fatalf("seed templates: %v", err)
	}
	for i := len(DefaultTemplates); i < MaxTemplatesPerUser; i++ {
		if _, err := svc.CreateTemplate("rita", "Extra habit", models.TaskCategoryWork); err != nil {
			t.Fatalf("CreateTemplate #%d: %v", i+1, err)
		}
	}
	if _, err := svc.CreateTemplate("rita", "One too many", models.TaskCategoryWork); !errors.Is(err, ErrTemplateLimit) {
		t.Fatalf("over-limit err = %v, want ErrTemplateLimit", err)
	}
	if _, err := svc.CreateTemplate("rita", "Bad", "gardening"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("bad category err = %v, want ErrInvalidCategory", err)
	}
}

func TestUpdateTemplate(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	createTestUser(t, db, "sam", "UTC", ActorTypeSloth)

	tpl, err := svc.CreateTemplate("sam", "Morning run", models.TaskCategoryFitness)
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	newTitle := "Evening run"
	updated, err := svc.UpdateTemplate(tpl.ID, "sam", &newTitle, nil, nil)
	if err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	if updated.Title != "Evening run" || updated.Category != models.TaskCategoryFitness || !updated.Active {
		t.Fatalf("patched template = %+v, want only the title changed", updated)
	}

	bad := "gardening"
	if _, err := svc.UpdateTemplate(tpl.ID, "sam", nil, &bad, nil); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("bad category err = %v, want ErrInvalidCategory", err)
	}

	off := false
	updated, err = svc.UpdateTemplate(tpl.ID, "sam", nil, nil, &off)
	if err != nil {
		t.Fatalf("pause template: %v", err)
	}
	if updated.Active {
		t.Fatalf("template still active after pause")
	}

	if _, err := svc.UpdateTemplate(tpl.ID, "mallory", &newTitle, nil, nil); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner err = %v, want ErrNotOwner", err)
	}
}

func TestDeleteTemplate(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	createTestUser(t, db, "tess", "UTC", ActorTypeSloth)

	tpl, err := svc.CreateTemplate("tess", "Stretch", models.TaskCategoryFitness)
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if err := svc.DeleteTemplate(tpl.ID, "mallory"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner err = %v, want ErrNotOwner", err)
	}
	if err := svc.DeleteTemplate(tpl.ID, "tess"); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	templates, err := svc.ListTemplates("tess")
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(templates) != 0 {
		t.Fatalf("templates after delete = %d, want 0", len(templates))
	}
}

func TestTodayTasksFollowsOwnerTimezone(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC) }
	createTestUser(t, db, "jack", "Asia/Tokyo", ActorTypeSloth)

	tasks, today, err := svc.TodayTasks("jack")
	if err != nil {
		t.Fatalf("TodayTasks: %v", err)
	}
	// 20:00 UTC on March 2nd is already March 3rd in Tokyo.
	if !today.Equal(utcDate(2026, time.March, 3)) {
		t.Fatalf("today = %v, want March 3rd", today)
	}
	if len(tasks) == 0 {
		t.Fatalf("no plan materialized")
	}
	for _, task := range tasks {
		if !dateOnly(task.Date).Equal(today) {
			t.Fatalf("task date = %v, want %v", task.Date, today)
		}
	}
}
