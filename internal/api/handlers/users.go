package handlers

import (
	"net/http"

	"github.com/dom/taskflow/internal/api/middleware"
	"github.com/dom/taskflow/internal/service"
	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	responder
	authService *service.AuthService
}

func NewUserHandler(authService *service.AuthService, log logrus.FieldLogger, development bool) *UserHandler {
	return &UserHandler{
		responder:   responder{log: log, development: development},
		authService: authService,
	}
}

// List returns the user directory. Admins use it to pick task owners.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	users, err := h.authService.ListUsers(r.Context(), claims)
	if err != nil {
		h.handleError(w, r, err, "Server error while fetching users")
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}
