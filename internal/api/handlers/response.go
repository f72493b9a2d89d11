package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/taskflow/internal/domain"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// responder carries what every handler needs to answer a request.
type responder struct {
	log         logrus.FieldLogger
	development bool
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// handleError maps domain errors to HTTP responses. Anything unrecognised is
// logged and answered with a generic 500 carrying fallback as its message.
func (rs responder) handleError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Errors: verr.Fields})
	case errors.Is(err, domain.ErrValidationFailed):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Errors: []FieldError{{Message: err.Error()}}})
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeMessage(w, http.StatusConflict, "User with this email already exists")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, domain.ErrMissingToken):
		writeMessage(w, http.StatusUnauthorized, "Access denied. No token provided.")
	case errors.Is(err, domain.ErrExpiredToken):
		writeMessage(w, http.StatusUnauthorized, "Token expired.")
	case errors.Is(err, domain.ErrInvalidToken):
		writeMessage(w, http.StatusUnauthorized, "Invalid token.")
	case errors.Is(err, domain.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Not found")
	default:
		rs.log.WithFields(logrus.Fields{
			"request_id": chiMiddleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).WithError(err).Error(fallback)

		resp := ErrorResponse{Message: fallback}
		if rs.development {
			resp.Error = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

func (rs responder) notFound(w http.ResponseWriter, what string) {
	writeMessage(w, http.StatusNotFound, what+" not found")
}
