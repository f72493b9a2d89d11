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
	"golang.org/x/crypto/bcrypt"
)

// TokenManager issues and validates session tokens.
type TokenManager interface {
	Issue(user *domain.User) (string, time.Time, error)
	Validate(token string) (*auth.Claims, error)
}

type AuthService struct {
	userRepo  repository.UserRepository
	tokens    TokenManager
	cost      int
	dummyHash []byte
	log       logrus.FieldLogger
}

func NewAuthService(userRepo repository.UserRepository, tokens TokenManager, bcryptCost int, log logrus.FieldLogger) *AuthService {
	// Compared against when the email is unknown, so that path costs the
	// same as a wrong password.
	dummy, err := bcrypt.GenerateFromPassword([]byte("taskflow-dummy-password"), bcryptCost)
	if err != nil {
		dummy = nil
	}

	return &AuthService{
		userRepo:  userRepo,
		tokens:    tokens,
		cost:      bcryptCost,
		dummyHash: dummy,
		log:       log.WithField("component", "auth"),
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a new account. The role defaults to user.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)

	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidationFailed, role)
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, domain.ErrDuplicateEmail
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("looking up email: %w", err)
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique index still catches a concurrent registration of the same email.
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return user, nil
}

// Verify checks a password against the stored hash. Unknown emails and wrong
// passwords both yield domain.ErrInvalidCredentials.
func (s *AuthService) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if s.dummyHash != nil {
				_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			}
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

// Login verifies the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.Verify(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("user logged in")
	return &AuthResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken decodes a bearer token into the caller's claims.
func (s *AuthService) ValidateToken(token string) (*auth.Claims, error) {
	return s.tokens.Validate(token)
}

// ChangePassword replaces the stored hash after re-checking the current
// password. Tokens issued before the change stay valid until they expire.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.log.WithField("user_id", userID).Info("password changed")
	return nil
}

// UpdateProfile changes the user's name and email.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, name, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)

	owner, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && owner.ID != userID {
		return nil, domain.ErrDuplicateEmail
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("looking up email: %w", err)
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, strings.TrimSpace(name), email); err != nil {
		return nil, err
	}

	return s.userRepo.GetByID(ctx, userID)
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ListUsers returns every account. Admin only.
func (s *AuthService) ListUsers(ctx context.Context, claims *auth.Claims) ([]*domain.User, error) {
	if err := auth.AuthorizeAdminOnly(claims); err != nil {
		return nil, err
	}
	return s.userRepo.List(ctx)
}

// hashPassword salts and hashes password. Inputs bcrypt cannot hash are a
// validation failure, not a server fault.
func (s *AuthService) hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrValidationFailed)
		}
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return hash, nil
}
