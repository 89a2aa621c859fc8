package models

import (
	"time"
)

const (
	TaskCategoryFitness     = "fitness"
	TaskCategoryLearning    = "learning"
	TaskCategoryWork        = "work"
	TaskCategoryChores      = "chores"
	TaskCategoryMindfulness = "mindfulness"
)

// TaskCategories lists every valid category tag, in display order.
var TaskCategories = []string{
	TaskCategoryFitness,
	TaskCategoryLearning,
	TaskCategoryWork,
	TaskCategoryChores,
	TaskCategoryMindfulness,
}

func ValidTaskCategory(c string) bool {
	for _, known := range TaskCategories {
		if c == known {
			return true
		}
	}
	return false
}

// TaskTemplate is a recurring habit definition. The daily planner draws the
// day's mandatory tasks from the user's active templates.
type TaskTemplate struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"type:uuid;index;not null" json:"external_user_id"`
	Title          string `gorm:"not null" json:"title"`
	Category       string `gorm:"type:varchar(32);not null" json:"category"`
	Active         bool   `gorm:"default:true;index" json:"active"`

	Timestamps
}

// Task is one task instance for one user on one calendar day (the user's
// local date). Mandatory rows are planner-generated; optional rows are
// user-created, at most two per day.
type Task struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"type:uuid;not null;index:idx_tasks_user_date;uniqueIndex:idx_tasks_plan" json:"external_user_id"`
	Date           time.Time `gorm:"not null;index:idx_tasks_user_date;uniqueIndex:idx_tasks_plan" json:"date"`

	Title    string `gorm:"not null" json:"title"`
	Category string `gorm:"type:varchar(32);not null" json:"category"`

	IsMandatory bool `gorm:"not null;default:false" json:"is_mandatory"`

	// Non-nil only for planner-generated rows. The unique index makes plan
	// generation insert-or-ignore safe under concurrent first reads.
	TemplateID *string `gorm:"type:uuid;uniqueIndex:idx_tasks_plan" json:"template_id,omitempty"`

	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}
