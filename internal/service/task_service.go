package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/taskflow/internal/auth"
	"github.com/dom/taskflow/internal/domain"
	"github.com/dom/taskflow/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// TaskNotifier receives committed task changes.
type TaskNotifier interface {
	Publish(event domain.TaskEvent)
}

type TaskService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	notifier TaskNotifier
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, notifier TaskNotifier, log logrus.FieldLogger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		notifier: notifier,
		now:      time.Now,
		log:      log.WithField("component", "tasks"),
	}
}

type CreateTaskInput struct {
	Title       string
	Description *string
	Priority    domain.Priority
	Status      domain.TaskStatus
	DueDate     *time.Time
	// OwnerID is honoured for admins only.
	OwnerID *uuid.UUID
}

type UpdateTaskInput struct {
	Title       string
	Description *string
	Priority    domain.Priority
	Status      domain.TaskStatus
	DueDate     *time.Time
}

// List returns the tasks visible to claims that match filter, newest first.
func (s *TaskService) List(ctx context.Context, claims *auth.Claims, filter domain.TaskFilter) ([]*domain.Task, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.taskRepo.List(ctx, auth.ScopeTaskFilter(claims, filter))
}

// Get loads a task. A missing task is ErrNotFound, even for callers who
// could not have read it.
func (s *TaskService) Get(ctx context.Context, claims *auth.Claims, id uuid.UUID) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.AuthorizeTaskAccess(claims, task, auth.OpRead); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, claims *auth.Claims, input CreateTaskInput) (*domain.Task, error) {
	priority, err := domain.ParsePriority(string(input.Priority))
	if err != nil {
		return nil, err
	}
	status, err := domain.ParseTaskStatus(string(input.Status))
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := &domain.Task{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(input.Title),
		Description: trimOptional(input.Description),
		Priority:    priority,
		Status:      status,
		DueDate:     toDate(input.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.OwnerID != nil {
		task.OwnerID = *input.OwnerID
	}

	if err := auth.AuthorizeTaskAccess(claims, task, auth.OpCreate); err != nil {
		return nil, err
	}

	if task.OwnerID != claims.UserID {
		if _, err := s.userRepo.GetByID(ctx, task.OwnerID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: owner %s does not exist", domain.ErrValidationFailed, task.OwnerID)
			}
			return nil, fmt.Errorf("assigning task owner: %w", err)
		}
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.log.WithFields(logrus.Fields{"task_id": task.ID, "owner_id": task.OwnerID, "actor_id": claims.UserID}).Info("task created")
	s.publish(domain.TaskEventCreated, claims, task)
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, claims *auth.Claims, id uuid.UUID, input UpdateTaskInput) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.AuthorizeTaskAccess(claims, task, auth.OpUpdate); err != nil {
		return nil, err
	}

	priority, err := domain.ParsePriority(string(input.Priority))
	if err != nil {
		return nil, err
	}
	status, err := domain.ParseTaskStatus(string(input.Status))
	if err != nil {
		return nil, err
	}

	task.Title = strings.TrimSpace(input.Title)
	task.Description = trimOptional(input.Description)
	task.Priority = priority
	task.Status = status
	task.DueDate = toDate(input.DueDate)
	task.UpdatedAt = s.now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"task_id": task.ID, "actor_id": claims.UserID}).Info("task updated")
	s.publish(domain.TaskEventUpdated, claims, task)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, claims *auth.Claims, id uuid.UUID) error {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.AuthorizeTaskAccess(claims, task, auth.OpDelete); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"task_id": id, "actor_id": claims.UserID}).Info("task deleted")
	s.publish(domain.TaskEventDeleted, claims, &domain.Task{ID: task.ID, OwnerID: task.OwnerID})
	return nil
}

// Stats aggregates the tasks visible to claims.
func (s *TaskService) Stats(ctx context.Context, claims *auth.Claims) (*domain.TaskStats, error) {
	scope := auth.ScopeTaskFilter(claims, domain.TaskFilter{})
	return s.taskRepo.Stats(ctx, scope.OwnerID, s.now())
}

func (s *TaskService) publish(eventType domain.TaskEventType, claims *auth.Claims, task *domain.Task) {
	if s.notifier == nil {
		return
	}
	event := domain.TaskEvent{
		Type:    eventType,
		TaskID:  task.ID,
		OwnerID: task.OwnerID,
		ActorID: claims.UserID,
	}
	if eventType != domain.TaskEventDeleted {
		event.Task = task
	}
	s.notifier.Publish(event)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toDate(t *time.Time) *datatypes.Date {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	date := datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	return &date
}
