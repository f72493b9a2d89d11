package service_test

import (
	"context"
	"strings"
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
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (*service.AuthService, *testutil.TestDB, *auth.TokenManager) {
	t.Helper()

	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.JWTExpiration)
	return service.NewAuthService(repos.User, tokens, cfg.BcryptCost, logging.Discard()), testDB, tokens
}

func TestAuthService_Register(t *testing.T) {
	authService, testDB, _ := newAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		input    service.RegisterInput
		setup    func()
		wantErr  error
		wantRole domain.Role
	}{
		{
			name: "successful registration defaults to user",
			input: service.RegisterInput{
				Name:     "Alice",
				Email:    "alice@example.com",
				Password: "secret1",
			},
			wantRole: domain.RoleUser,
		},
		{
			name: "admin registration",
			input: service.RegisterInput{
				Name:     "Root",
				Email:    "root@example.com",
				Password: "secret1",
				Role:     domain.RoleAdmin,
			},
			wantRole: domain.RoleAdmin,
		},
		{
			name: "duplicate email after normalization",
			input: service.RegisterInput{
				Name:     "Alice Again",
				Email:    "  ALICE@Example.com ",
				Password: "secret1",
			},
			setup: func() {
				testutil.NewUserBuilder().
					WithEmail("alice@example.com").
					Build(t, testDB.DB)
			},
			wantErr: domain.ErrDuplicateEmail,
		},
		{
			name: "unknown role",
			input: service.RegisterInput{
				Name:     "Mallory",
				Email:    "mallory@example.com",
				Password: "secret1",
				Role:     domain.Role("superuser"),
			},
			wantErr: domain.ErrValidationFailed,
		},
		{
			name: "password longer than bcrypt accepts",
			input: service.RegisterInput{
				Name:     "Long Pass",
				Email:    "long@example.com",
				Password: strings.Repeat("p", 73),
			},
			wantErr: domain.ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clean up between tests
			testDB.Truncate(t)

			if tt.setup != nil {
				tt.setup()
			}

			user, err := authService.Register(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, user.ID)
			assert.Equal(t, domain.NormalizeEmail(tt.input.Email), user.Email)
			assert.Equal(t, tt.wantRole, user.Role)
			assert.NotEqual(t, tt.input.Password, user.PasswordHash)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tt.input.Password)))
		})
	}
}

func TestAuthService_Verify(t *testing.T) {
	authService, testDB, _ := newAuthService(t)
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().
		WithEmail("alice@example.com").
		WithPassword("secret1").
		Build(t, testDB.DB)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"correct credentials", "alice@example.com", password, nil},
		{"email is normalized", " Alice@EXAMPLE.com", password, nil},
		{"wrong password", "alice@example.com", "wrong-password", domain.ErrInvalidCredentials},
		{"unknown email", "nobody@example.com", password, domain.ErrInvalidCredentials},
		{"empty password", "alice@example.com", "", domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authService.Verify(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, got.ID)
		})
	}
}

func TestAuthService_VerifyFailuresAreIndistinguishable(t *testing.T) {
	authService, testDB, _ := newAuthService(t)
	ctx := context.Background()

	testutil.NewUserBuilder().WithEmail("alice@example.com").Build(t, testDB.DB)

	_, wrongPassword := authService.Verify(ctx, "alice@example.com", "wrong-password")
	_, unknownEmail := authService.Verify(ctx, "nobody@example.com", "wrong-password")

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthService_Login(t *testing.T) {
	authService, testDB, tokens := newAuthService(t)
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().
		WithName("Alice").
		WithEmail("alice@example.com").
		AsAdmin().
		Build(t, testDB.DB)

	result, err := authService.Login(ctx, service.LoginInput{Email: user.Email, Password: password})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.WithinDuration(t, time.Now().Add(tokens.TTL()), result.ExpiresAt, 5*time.Second)

	claims, err := authService.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, domain.RoleAdmin, claims.Role)

	_, err = authService.Login(ctx, service.LoginInput{Email: user.Email, Password: "nope-nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_ChangePassword(t *testing.T) {
	authService, testDB, _ := newAuthService(t)
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().WithPassword("old-secret").Build(t, testDB.DB)
	issued, err := authService.Login(ctx, service.LoginInput{Email: user.Email, Password: password})
	require.NoError(t, err)

	tests := []struct {
		name    string
		userID  uuid.UUID
		current string
		next    string
		wantErr error
	}{
		{"wrong current password", user.ID, "not-it", "new-secret", domain.ErrInvalidCredentials},
		{"unknown user", uuid.New(), "old-secret", "new-secret", domain.ErrNotFound},
		{"new password too long", user.ID, "old-secret", strings.Repeat("p", 73), domain.ErrValidationFailed},
		{"success", user.ID, "old-secret", "new-secret", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authService.ChangePassword(ctx, tt.userID, tt.current, tt.next)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	_, err = authService.Verify(ctx, user.Email, "old-secret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = authService.Verify(ctx, user.Email, "new-secret")
	assert.NoError(t, err)

	// Sessions are not revoked by a password change.
	_, err = authService.ValidateToken(issued.Token)
	assert.NoError(t, err)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	authService, testDB, _ := newAuthService(t)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().WithEmail("alice@example.com").Build(t, testDB.DB)
	testutil.NewUserBuilder().WithEmail("bob@example.com").Build(t, testDB.DB)

	tests := []struct {
		name    string
		newName string
		email   string
		wantErr error
	}{
		{"email owned by someone else", "Alice", "BOB@example.com", domain.ErrDuplicateEmail},
		{"keep own email", "Alice Liddell", "alice@example.com", nil},
		{"new email is normalized", "Alice", " Alice.L@Example.com ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authService.UpdateProfile(ctx, user.ID, tt.newName, tt.email)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.newName, got.Name)
			assert.Equal(t, domain.NormalizeEmail(tt.email), got.Email)
		})
	}

	_, err := authService.UpdateProfile(ctx, uuid.New(), "Ghost", "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuthService_ListUsers(t *testing.T) {
	authService, testDB, _ := newAuthService(t)
	ctx := context.Background()

	admin, _ := testutil.NewUserBuilder().AsAdmin().Build(t, testDB.DB)
	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	users, err := authService.ListUsers(ctx, testutil.Claims(admin))
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = authService.ListUsers(ctx, testutil.Claims(user))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
