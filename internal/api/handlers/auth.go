package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dom/taskflow/internal/api/middleware"
	"github.com/dom/taskflow/internal/domain"
	"github.com/dom/taskflow/internal/service"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	responder
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService, log logrus.FieldLogger, development bool) *AuthHandler {
	return &AuthHandler{
		responder:   responder{log: log, development: development},
		authService: authService,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,maxbytes"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

func (r *RegisterRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
}

func (r *UpdateProfileRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,maxbytes"`
}

type UserResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type LoginResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

type ProfileResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role.String(),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.handleError(w, r, err, "Server error during registration")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		h.handleError(w, r, err, "Server error during registration")
		return
	}

	user, err := h.authService.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		h.handleError(w, r, err, "Server error during registration")
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Message: "User registered successfully",
		UserID:  user.ID.String(),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.handleError(w, r, err, "Server error during login")
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(w, r, err, "Server error during login")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message:   "Login successful",
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toUserResponse(result.User),
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.notFound(w, "User")
			return
		}
		h.handleError(w, r, err, "Server error")
		return
	}

	resp := toUserResponse(user)
	resp.CreatedAt = &user.CreatedAt
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.handleError(w, r, err, "Server error while updating profile")
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), claims.UserID, req.Name, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.notFound(w, "User")
			return
		}
		if errors.Is(err, domain.ErrDuplicateEmail) {
			writeMessage(w, http.StatusConflict, "Email is already in use")
			return
		}
		h.handleError(w, r, err, "Server error while updating profile")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		Message: "Profile updated successfully",
		User:    toUserResponse(user),
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.handleError(w, r, err, "Server error while changing password")
		return
	}

	err := h.authService.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeMessage(w, http.StatusUnauthorized, "Current password is incorrect")
		case errors.Is(err, domain.ErrNotFound):
			h.notFound(w, "User")
		default:
			h.handleError(w, r, err, "Server error while changing password")
		}
		return
	}

	writeMessage(w, http.StatusOK, "Password updated successfully")
}
