package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-battle-system/models"
)

var (
	ErrNotToday        = errors.New("task is not editable outside its own day")
	ErrOptionalLimit   = errors.New("optional task limit reached for today")
	ErrTaskImmutable   = errors.New("mandatory tasks cannot be removed")
	ErrTemplateLimit   = errors.New("template limit reached")
	ErrInvalidCategory = errors.New("unknown task category")
)

// MaxTemplatesPerUser caps the template list so the daily rotation stays
// meaningful.
const MaxTemplatesPerUser = 12

// DefaultTemplates seed a fresh user with one habit per category.
var DefaultTemplates = []struct {
	Title    string
	Category string
}{
	{"30 minutes of exercise", models.TaskCategoryFitness},
	{"Study for 25 minutes", models.TaskCategoryLearning},
	{"One focused work block", models.TaskCategoryWork},
	{"Tidy one room", models.TaskCategoryChores},
	{"Meditate for 10 minutes", models.TaskCategoryMindfulness},
}

type TaskService struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{DB: db, now: time.Now}
}

// quotaForDate returns the mandatory quota for a calendar date, cycling
// through 3, 4 and 5 by day of year so every date has a fixed quota.
func quotaForDate(date time.Time) int {
	return 3 + date.YearDay()%3
}

func (s *TaskService) ownerToday(externalUserID string) (time.Time, error) {
	var user models.User
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		return time.Time{}, fmt.Errorf("failed to load user %s: %w", externalUserID, err)
	}
	return localDate(s.now(), resolveLocation(user.Timezone)), nil
}

// EnsureDefaultTemplates seeds the starter habit set for users with no
// templates yet. Safe to call repeatedly.
func (s *TaskService) EnsureDefaultTemplates(externalUserID string) error {
	var count int64
	if err := s.DB.Model(&models.TaskTemplate{}).
		Where("external_user_id = ?", externalUserID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, d := range DefaultTemplates {
		tpl := models.TaskTemplate{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Title:          d.Title,
			Category:       d.Category,
			Active:         true,
		}
		if err := s.DB.Create(&tpl).Error; err != nil {
			return fmt.Errorf("failed to seed templates for %s: %w", externalUserID, err)
		}
	}
	log.Printf("📋 Seeded %d starter templates for %s", len(DefaultTemplates), externalUserID)
	return nil
}

// EnsureDailyPlan materializes the mandatory tasks for a date from the user's
// active templates. The rotation window is keyed by day of year so the same
// date always produces the same plan, and the unique plan index makes the
// insert idempotent under concurrent calls.
func (s *TaskService) EnsureDailyPlan(externalUserID string, date time.Time) ([]models.Task, error) {
	date = dateOnly(date)

	var templates []models.TaskTemplate
	if err := s.DB.Where("external_user_id = ? AND active = ?", externalUserID, true).
		Order("created_at ASC").
		Find(&templates).Error; err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		if err := s.EnsureDefaultTemplates(externalUserID); err != nil {
			return nil, err
		}
		if err := s.DB.Where("external_user_id = ? AND active = ?", externalUserID, true).
			Order("created_at ASC").
			Find(&templates).Error; err != nil {
			return nil, err
		}
	}

	quota := quotaForDate(date)
	if quota > len(templates) {
		quota = len(templates)
	}
	offset := date.YearDay() % len(templates)

	for i := 0; i < quota; i++ {
		tpl := templates[(offset+i)%len(templates)]
		templateID := tpl.ID
		task := models.Task{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Date:           date,
			Title:          tpl.Title,
			Category:       tpl.Category,
			IsMandatory:    true,
			TemplateID:     &templateID,
		}
		err := s.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "external_user_id"}, {Name: "date"}, {Name: "template_id"},
			},
			DoNothing: true,
		}).Create(&task).Error
		if err != nil {
			return nil, fmt.Errorf("failed to materialize plan for %s on %s: %w",
				externalUserID, date.Format("2006-01-02"), err)
		}
	}

	return s.TasksFor(externalUserID, date)
}

// TasksFor lists a user's tasks for a date, mandatory plan first.
func (s *TaskService) TasksFor(externalUserID string, date time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := s.DB.Where("external_user_id = ? AND date = ?", externalUserID, dateOnly(date)).
		Order("is_mandatory DESC, created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// TodayTasks resolves the user's current local date and returns that day's
// plan, creating it on first access.
func (s *TaskService) TodayTasks(externalUserID string) ([]models.Task, time.Time, error) {
	today, err := s.ownerToday(externalUserID)
	if err != nil {
		return nil, time.Time{}, err
	}
	tasks, err := s.EnsureDailyPlan(externalUserID, today)
	return tasks, today, err
}

// CreateOptionalTask adds a bonus task to today's plan, capped at
// MaxOptionalTasks per day.
func (s *TaskService) CreateOptionalTask(externalUserID, title, category string) (*models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > 160 {
		return nil, fmt.Errorf("invalid task title")
	}
	if !models.ValidTaskCategory(category) {
		return nil, ErrInvalidCategory
	}

	today, err := s.ownerToday(externalUserID)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.DB.Model(&models.Task{}).
		Where("external_user_id = ? AND date = ? AND is_mandatory = ?", externalUserID, today, false).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count >= MaxOptionalTasks {
		return nil, ErrOptionalLimit
	}

	task := models.Task{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Date:           today,
		Title:          title,
		Category:       category,
		IsMandatory:    false,
	}
	if err := s.DB.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to create optional task: %w", err)
	}
	return &task, nil
}

// SetTaskCompletion toggles a task. Only the owner may toggle, and only while
// the task's day is still the owner's current day; once the day rolls over
// the round takes the tasks as they stand.
func (s *TaskService) SetTaskCompletion(taskID, requesterID string, completed bool) (*models.Task, error) {
	var task models.Task
	if err := s.DB.First(&task, "id = ?", taskID).Error; err != nil {
		return nil, err
	}
	if task.ExternalUserID != requesterID {
		return nil, ErrNotOwner
	}

	today, err := s.ownerToday(requesterID)
	if err != nil {
		return nil, err
	}
	if !dateOnly(task.Date).Equal(today) {
		return nil, ErrNotToday
	}

	task.Completed = completed
	if completed {
		now := s.now()
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
	if err := s.DB.Save(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", taskID, err)
	}
	return &task, nil
}

// DeleteOptionalTask removes a bonus task from today's plan. Mandatory tasks
// are part of the scored plan and cannot be removed.
func (s *TaskService) DeleteOptionalTask(taskID, requesterID string) error {
	var task models.Task
	if err := s.DB.First(&task, "id = ?", taskID).Error; err != nil {
		return err
	}
	if task.ExternalUserID != requesterID {
		return ErrNotOwner
	}
	if task.IsMandatory {
		return ErrTaskImmutable
	}

	today, err := s.ownerToday(requesterID)
	if err != nil {
		return err
	}
	if !dateOnly(task.Date).Equal(today) {
		return ErrNotToday
	}

	return s.DB.Delete(&models.Task{}, "id = ?", taskID).Error
}

// ListTemplates returns the user's full template list, active and paused.
func (s *TaskService) ListTemplates(externalUserID string) ([]models.TaskTemplate, error) {
	var templates []models.TaskTemplate
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("created_at ASC").
		Find(&templates).Error
	return templates, err
}

// CreateTemplate adds a recurring habit to the rotation.
func (s *TaskService) CreateTemplate(externalUserID, title, category string) (*models.TaskTemplate, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > 160 {
		return nil, fmt.Errorf("invalid template title")
	}
	if !models.ValidTaskCategory(category) {
		return nil, ErrInvalidCategory
	}

	var count int64
	if err := s.DB.Model(&models.TaskTemplate{}).
		Where("external_user_id = ?", externalUserID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count >= MaxTemplatesPerUser {
		return nil, ErrTemplateLimit
	}

	tpl := models.TaskTemplate{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Title:          title,
		Category:       category,
		Active:         true,
	}
	if err := s.DB.Create(&tpl).Error; err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return &tpl, nil
}

// UpdateTemplate patches title, category or active state. Nil fields are left
// unchanged. Changes apply from the next materialized day onward.
func (s *TaskService) UpdateTemplate(templateID, requesterID string, title, category *string, active *bool) (*models.TaskTemplate, error) {
	var tpl models.TaskTemplate
	if err := s.DB.First(&tpl, "id = ?", templateID).Error; err != nil {
		return nil, err
	}
	if tpl.ExternalUserID != requesterID {
		return nil, ErrNotOwner
	}

	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" || len(t) > 160 {
			return nil, fmt.Errorf("invalid template title")
		}
		tpl.Title = t
	}
	if category != nil {
		if !models.ValidTaskCategory(*category) {
			return nil, ErrInvalidCategory
		}
		tpl.Category = *category
	}
	if active != nil {
		tpl.Active = *active
	}

	if err := s.DB.Save(&tpl).Error; err != nil {
		return nil, fmt.Errorf("failed to update template %s: %w", templateID, err)
	}
	return &tpl, nil
}

// DeleteTemplate drops a habit from the rotation. Tasks already materialized
// from it keep their snapshot of title and category.
func (s *TaskService) DeleteTemplate(templateID, requesterID string) error {
	var tpl models.TaskTemplate
	if err := s.DB.First(&tpl, "id = ?", templateID).Error; err != nil {
		return err
	}
	if tpl.ExternalUserID != requesterID {
		return ErrNotOwner
	}
	return s.DB.Delete(&models.TaskTemplate{}, "id = ?", templateID).Error
}
