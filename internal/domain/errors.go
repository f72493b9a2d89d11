package domain

import "errors"

// Credential errors
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Token errors
var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Access and lookup errors
var (
	ErrForbidden        = errors.New("access denied")
	ErrNotFound         = errors.New("not found")
	ErrValidationFailed = errors.New("validation failed")
)
