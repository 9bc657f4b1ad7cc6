// Package common defines the sentinel errors shared by the service layers and
// the HTTP transport. Callers wrap them with fmt.Errorf("...: %w", err) and
// match them with errors.Is.
package common

import "errors"

var (
	// Validation errors (400).
	ErrInvalidBody       = errors.New("invalid request body")
	ErrMissingParameter  = errors.New("missing parameter")
	ErrInvalidRole       = errors.New("invalid role")
	ErrDuplicateIdentity = errors.New("email or username already exists")

	// Authentication errors (401).
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Authorization errors (403).
	ErrForbidden = errors.New("forbidden: insufficient role")

	// Repository-level errors (404).
	ErrUserNotFound = errors.New("user not found")

	// Dependency errors (500).
	ErrProviderFetchFailed = errors.New("failed to fetch weather data")
)
