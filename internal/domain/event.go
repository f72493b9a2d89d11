package domain

import "github.com/google/uuid"

type TaskEventType string

const (
	TaskEventCreated TaskEventType = "TASK_CREATED"
	TaskEventUpdated TaskEventType = "TASK_UPDATED"
	TaskEventDeleted TaskEventType = "TASK_DELETED"
)

// TaskEvent describes a committed change to a task. Task is nil for deletions.
type TaskEvent struct {
	Type    TaskEventType
	TaskID  uuid.UUID
	OwnerID uuid.UUID
	ActorID uuid.UUID
	Task    *Task
}
