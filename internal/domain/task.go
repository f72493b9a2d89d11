package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var AllPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority converts a raw priority. An empty string yields PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrValidationFailed, s)
	}
}

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

var AllTaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}

// ParseTaskStatus converts a raw status. An empty string yields TaskStatusPending.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case "":
		return TaskStatusPending, nil
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return TaskStatus(s), nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrValidationFailed, s)
	}
}

type Task struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title       string          `json:"title" gorm:"not null"`
	Description *string         `json:"description"`
	Priority    Priority        `json:"priority" gorm:"type:varchar(16);not null;default:medium"`
	Status      TaskStatus      `json:"status" gorm:"type:varchar(16);not null;default:pending"`
	DueDate     *datatypes.Date `json:"dueDate"`
	OwnerID     uuid.UUID       `json:"userId" gorm:"column:user_id;type:uuid;not null;index"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	// Relations
	Owner *User `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
}

// OwnerName returns the preloaded owner's name, or "" if the owner was not loaded.
func (t *Task) OwnerName() string {
	if t.Owner == nil {
		return ""
	}
	return t.Owner.Name
}

// TaskFilter narrows a task listing. A nil OwnerID means every owner.
type TaskFilter struct {
	OwnerID  *uuid.UUID
	Priority Priority
	Status   TaskStatus
	Search   string
}

type StatusCount struct {
	Status TaskStatus `json:"status"`
	Count  int64      `json:"count"`
}

type PriorityCount struct {
	Priority Priority `json:"priority"`
	Count    int64    `json:"count"`
}

type TaskStats struct {
	Total      int64           `json:"total"`
	ByStatus   []StatusCount   `json:"byStatus"`
	ByPriority []PriorityCount `json:"byPriority"`
	Overdue    int64           `json:"overdue"`
}
