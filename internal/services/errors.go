package services

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation needs a logged-in session
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRoleRequired is returned when logging in before a role was selected
	ErrRoleRequired = errors.New("a role must be selected first")

	// ErrForbidden is returned when the caller's role may not perform the operation
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for malformed or incomplete input
	ErrValidation = errors.New("validation failed")

	// ErrFileNotFound is returned when a requested report file does not exist
	ErrFileNotFound = errors.New("file not found")
)
