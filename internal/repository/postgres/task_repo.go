package postgres

import (
	"context"
	"time"

	"github.com/dom/taskflow/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *taskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Omit("Owner").Create(task).Error
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).
		Preload("Owner").
		First(&task, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, nil)
	}
	return &task, nil
}

// Update writes the mutable fields of task. The owner column is never touched.
func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"title":       task.Title,
			"description": task.Description,
			"priority":    task.Priority,
			"status":      task.Status,
			"due_date":    task.DueDate,
			"updated_at":  task.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *taskRepository) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.WithContext(ctx).
		Scopes(filterScope(filter)).
		Preload("Owner").
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) Stats(ctx context.Context, ownerID *uuid.UUID, today time.Time) (*domain.TaskStats, error) {
	db := r.db.WithContext(ctx)
	owned := filterScope(domain.TaskFilter{OwnerID: ownerID})

	stats := &domain.TaskStats{
		ByStatus:   []domain.StatusCount{},
		ByPriority: []domain.PriorityCount{},
	}

	if err := db.Model(&domain.Task{}).Scopes(owned).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	err := db.Model(&domain.Task{}).
		Scopes(owned).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&stats.ByStatus).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&domain.Task{}).
		Scopes(owned).
		Select("priority, COUNT(*) AS count").
		Group("priority").
		Order("priority").
		Scan(&stats.ByPriority).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&domain.Task{}).
		Scopes(owned).
		Where("due_date < ? AND status <> ?", today.Format("2006-01-02"), domain.TaskStatusCompleted).
		Count(&stats.Overdue).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func filterScope(filter domain.TaskFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.OwnerID != nil {
			db = db.Where("user_id = ?", *filter.OwnerID)
		}
		if filter.Priority != "" {
			db = db.Where("priority = ?", filter.Priority)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.Search != "" {
			pattern := "%" + filter.Search + "%"
			db = db.Where("(title ILIKE ? OR description ILIKE ?)", pattern, pattern)
		}
		return db
	}
}
