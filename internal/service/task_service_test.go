package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dom/taskflow/internal/auth"
	"github.com/dom/taskflow/internal/domain"
	"github.com/dom/taskflow/internal/logging"
	"github.com/dom/taskflow/internal/repository/postgres"
	"github.com/dom/taskflow/internal/service"
	"github.com/dom/taskflow/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.TaskEvent
}

func (n *recordingNotifier) Publish(event domain.TaskEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []domain.TaskEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.TaskEvent(nil), n.events...)
}

type taskFixture struct {
	db       *testutil.TestDB
	services *service.Services
	notifier *recordingNotifier
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()

	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.JWTExpiration)
	notifier := &recordingNotifier{}

	return &taskFixture{
		db:       testDB,
		services: service.NewServices(repos, tokens, notifier, cfg, logging.Discard()),
		notifier: notifier,
	}
}

func strPtr(s string) *string { return &s }

func TestTaskService_Create(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	bob, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	admin, _ := testutil.NewUserBuilder().AsAdmin().Build(t, f.db.DB)
	due := time.Date(2030, time.May, 1, 18, 30, 0, 0, time.UTC)
	ghost := uuid.New()

	tests := []struct {
		name      string
		caller    *domain.User
		input     service.CreateTaskInput
		wantOwner uuid.UUID
		wantErr   error
		check     func(*testing.T, *domain.Task)
	}{
		{
			name:      "defaults applied",
			caller:    alice,
			input:     service.CreateTaskInput{Title: "  Write report  "},
			wantOwner: alice.ID,
			check: func(t *testing.T, task *domain.Task) {
				assert.Equal(t, "Write report", task.Title)
				assert.Equal(t, domain.PriorityMedium, task.Priority)
				assert.Equal(t, domain.TaskStatusPending, task.Status)
				assert.Nil(t, task.Description)
				assert.Nil(t, task.DueDate)
			},
		},
		{
			name:   "explicit fields",
			caller: alice,
			input: service.CreateTaskInput{
				Title:       "Ship release",
				Description: strPtr(" notes "),
				Priority:    domain.PriorityHigh,
				Status:      domain.TaskStatusInProgress,
				DueDate:     &due,
			},
			wantOwner: alice.ID,
			check: func(t *testing.T, task *domain.Task) {
				require.NotNil(t, task.Description)
				assert.Equal(t, "notes", *task.Description)
				require.NotNil(t, task.DueDate)
				assert.Equal(t, "2030-05-01", time.Time(*task.DueDate).Format("2006-01-02"))
			},
		},
		{
			name:      "non-admin target owner is overridden",
			caller:    alice,
			input:     service.CreateTaskInput{Title: "Sneaky", OwnerID: &bob.ID},
			wantOwner: alice.ID,
		},
		{
			name:      "admin assigns another owner",
			caller:    admin,
			input:     service.CreateTaskInput{Title: "For Bob", OwnerID: &bob.ID},
			wantOwner: bob.ID,
		},
		{
			name:    "admin assigns unknown owner",
			caller:  admin,
			input:   service.CreateTaskInput{Title: "For nobody", OwnerID: &ghost},
			wantErr: domain.ErrValidationFailed,
		},
		{
			name:    "unknown priority",
			caller:  alice,
			input:   service.CreateTaskInput{Title: "Bad", Priority: domain.Priority("urgent")},
			wantErr: domain.ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := f.services.Task.Create(ctx, testutil.Claims(tt.caller), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, task.OwnerID)

			stored, err := f.services.Task.Get(ctx, testutil.Claims(admin), task.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, stored.OwnerID)
			if tt.check != nil {
				tt.check(t, stored)
			}
		})
	}
}

func TestTaskService_AccessControl(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	owner, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	stranger, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	admin, _ := testutil.NewUserBuilder().AsAdmin().Build(t, f.db.DB)

	update := service.UpdateTaskInput{
		Title:    "Updated title",
		Priority: domain.PriorityLow,
		Status:   domain.TaskStatusCompleted,
	}

	tests := []struct {
		name    string
		caller  *domain.User
		op      func(claims *auth.Claims, id uuid.UUID) error
		wantErr error
	}{
		{"owner reads", owner, func(c *auth.Claims, id uuid.UUID) error { _, err := f.services.Task.Get(ctx, c, id); return err }, nil},
		{"stranger reads", stranger, func(c *auth.Claims, id uuid.UUID) error { _, err := f.services.Task.Get(ctx, c, id); return err }, domain.ErrForbidden},
		{"admin reads", admin, func(c *auth.Claims, id uuid.UUID) error { _, err := f.services.Task.Get(ctx, c, id); return err }, nil},
		{"owner updates", owner, func(c *auth.Claims, id uuid.UUID) error { _, err := f.services.Task.Update(ctx, c, id, update); return err }, nil},
		{"stranger updates", stranger, func(c *auth.Claims, id uuid.UUID) error { _, err := f.services.Task.Update(ctx, c, id, update); return err }, domain.ErrForbidden},
		{"admin updates", admin, func(c *auth.Claims, id uuid.UUID) error { _, err := f.services.Task.Update(ctx, c, id, update); return err }, nil},
		{"stranger deletes", stranger, func(c *auth.Claims, id uuid.UUID) error { return f.services.Task.Delete(ctx, c, id) }, domain.ErrForbidden},
		{"owner deletes", owner, func(c *auth.Claims, id uuid.UUID) error { return f.services.Task.Delete(ctx, c, id) }, nil},
		{"admin deletes", admin, func(c *auth.Claims, id uuid.UUID) error { return f.services.Task.Delete(ctx, c, id) }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := testutil.NewTaskBuilder().WithOwner(owner).Build(t, f.db.DB)

			err := tt.op(testutil.Claims(tt.caller), task.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTaskService_NotFoundBeforeForbidden(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	stranger, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	claims := testutil.Claims(stranger)
	missing := uuid.New()

	_, err := f.services.Task.Get(ctx, claims, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.services.Task.Update(ctx, claims, missing, service.UpdateTaskInput{
		Title: "Nope", Priority: domain.PriorityLow, Status: domain.TaskStatusPending,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, f.services.Task.Delete(ctx, claims, missing), domain.ErrNotFound)
}

func TestTaskService_UpdateKeepsOwner(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	owner, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	admin, _ := testutil.NewUserBuilder().AsAdmin().Build(t, f.db.DB)
	task := testutil.NewTaskBuilder().WithOwner(owner).
		WithDueDate(time.Date(2030, time.January, 2, 0, 0, 0, 0, time.UTC)).
		Build(t, f.db.DB)

	updated, err := f.services.Task.Update(ctx, testutil.Claims(admin), task.ID, service.UpdateTaskInput{
		Title:    "Admin edit",
		Priority: domain.PriorityHigh,
		Status:   domain.TaskStatusInProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, updated.OwnerID)
	assert.Nil(t, updated.DueDate, "update replaces the due date")

	_, err = f.services.Task.Update(ctx, testutil.Claims(owner), task.ID, service.UpdateTaskInput{
		Title:    "Owner edit",
		Priority: domain.PriorityHigh,
		Status:   domain.TaskStatus("done"),
	})
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestTaskService_ListScope(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	bob, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	admin, _ := testutil.NewUserBuilder().AsAdmin().Build(t, f.db.DB)

	testutil.NewTaskBuilder().WithOwner(alice).WithTitle("Alice one").Build(t, f.db.DB)
	testutil.NewTaskBuilder().WithOwner(alice).WithTitle("Alice two").WithPriority(domain.PriorityHigh).Build(t, f.db.DB)
	testutil.NewTaskBuilder().WithOwner(bob).WithTitle("Bob one").WithPriority(domain.PriorityHigh).Build(t, f.db.DB)

	tests := []struct {
		name      string
		caller    *domain.User
		filter    domain.TaskFilter
		wantCount int
		wantOwner *uuid.UUID
	}{
		{"user sees own tasks", alice, domain.TaskFilter{}, 2, &alice.ID},
		{"user cannot widen to another owner", alice, domain.TaskFilter{OwnerID: &bob.ID}, 2, &alice.ID},
		{"user with priority filter", alice, domain.TaskFilter{Priority: domain.PriorityHigh}, 1, &alice.ID},
		{"admin sees everything", admin, domain.TaskFilter{}, 3, nil},
		{"admin narrows by owner", admin, domain.TaskFilter{OwnerID: &bob.ID}, 1, &bob.ID},
		{"search is trimmed", admin, domain.TaskFilter{Search: "  bob "}, 1, &bob.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := f.services.Task.List(ctx, testutil.Claims(tt.caller), tt.filter)
			require.NoError(t, err)
			assert.Len(t, tasks, tt.wantCount)
			if tt.wantOwner != nil {
				for _, task := range tasks {
					assert.Equal(t, *tt.wantOwner, task.OwnerID)
				}
			}
		})
	}
}

func TestTaskService_StatsScope(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	admin, _ := testutil.NewUserBuilder().AsAdmin().Build(t, f.db.DB)

	testutil.NewTaskBuilder().WithOwner(alice).Build(t, f.db.DB)
	testutil.NewTaskBuilder().WithOwner(admin).Build(t, f.db.DB)
	testutil.NewTaskBuilder().WithOwner(admin).Build(t, f.db.DB)

	stats, err := f.services.Task.Stats(ctx, testutil.Claims(alice))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)

	stats, err = f.services.Task.Stats(ctx, testutil.Claims(admin))
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
}

func TestTaskService_PublishesEvents(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	claims := testutil.Claims(alice)

	task, err := f.services.Task.Create(ctx, claims, service.CreateTaskInput{Title: "Evented"})
	require.NoError(t, err)
	_, err = f.services.Task.Update(ctx, claims, task.ID, service.UpdateTaskInput{
		Title: "Evented again", Priority: domain.PriorityLow, Status: domain.TaskStatusCompleted,
	})
	require.NoError(t, err)
	require.NoError(t, f.services.Task.Delete(ctx, claims, task.ID))

	// A rejected write publishes nothing.
	_, err = f.services.Task.Create(ctx, claims, service.CreateTaskInput{Title: "Bad", Status: "nope"})
	require.Error(t, err)

	events := f.notifier.Events()
	require.Len(t, events, 3)

	wantTypes := []domain.TaskEventType{domain.TaskEventCreated, domain.TaskEventUpdated, domain.TaskEventDeleted}
	for i, ev := range events {
		assert.Equal(t, wantTypes[i], ev.Type)
		assert.Equal(t, task.ID, ev.TaskID)
		assert.Equal(t, alice.ID, ev.OwnerID)
		assert.Equal(t, alice.ID, ev.ActorID)
	}
	assert.NotNil(t, events[0].Task)
	assert.Equal(t, "Evented again", events[1].Task.Title)
	assert.Nil(t, events[2].Task)
}

// TestScenario_AliceAndBob walks the documented end-to-end example through the
// service layer.
func TestScenario_AliceAndBob(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	authService := f.services.Auth
	taskService := f.services.Task

	_, err := authService.Register(ctx, service.RegisterInput{
		Name: "Alice", Email: "alice@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	login, err := authService.Login(ctx, service.LoginInput{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, login.User.Role)

	aliceClaims, err := authService.ValidateToken(login.Token)
	require.NoError(t, err)

	_, err = authService.Register(ctx, service.RegisterInput{
		Name: "Bob", Email: "bob@example.com", Password: "secret2", Role: domain.RoleAdmin,
	})
	require.NoError(t, err)
	bobLogin, err := authService.Login(ctx, service.LoginInput{Email: "bob@example.com", Password: "secret2"})
	require.NoError(t, err)
	bobClaims, err := authService.ValidateToken(bobLogin.Token)
	require.NoError(t, err)

	task, err := taskService.Create(ctx, aliceClaims, service.CreateTaskInput{Title: "Write report"})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Equal(t, domain.TaskStatusPending, task.Status)

	bobView, err := taskService.List(ctx, bobClaims, domain.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, bobView, 1)
	assert.Equal(t, task.ID, bobView[0].ID)

	err = taskService.Delete(ctx, aliceClaims, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	carol, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	carolTask := testutil.NewTaskBuilder().WithOwner(carol).Build(t, f.db.DB)

	_, err = taskService.Update(ctx, aliceClaims, carolTask.ID, service.UpdateTaskInput{
		Title: "Hijack", Priority: domain.PriorityHigh, Status: domain.TaskStatusCompleted,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
