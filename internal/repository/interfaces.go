package repository

import (
	"context"
	"time"

	"github.com/dom/taskflow/internal/domain"
	"github.com/google/uuid"
)

// UserRepository stores user accounts. Lookups of missing rows return
// domain.ErrNotFound; writes that collide on email return domain.ErrDuplicateEmail.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, email string) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	List(ctx context.Context) ([]*domain.User, error)
}

// TaskRepository stores tasks. Lookups of missing rows return domain.ErrNotFound.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)
	Stats(ctx context.Context, ownerID *uuid.UUID, today time.Time) (*domain.TaskStats, error)
}

type Repositories struct {
	User UserRepository
	Task TaskRepository
}
