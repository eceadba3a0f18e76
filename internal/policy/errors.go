package policy

import "errors"

var (
	// ErrInvalidCredentials is the single outcome of every failed login
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnknownRole is returned for roles missing from the role table
	ErrUnknownRole = errors.New("unknown role")

	// ErrNoEntities is returned when a user has no entity assigned
	ErrNoEntities = errors.New("unauthorized: no entities assigned")

	// ErrEntityNotAuthorized is returned when the entity is outside the user's authorized set
	ErrEntityNotAuthorized = errors.New("unauthorized: entity not permitted")

	// ErrCategoryNotAllowed is returned when the report category is not allowed for the role
	ErrCategoryNotAllowed = errors.New("unauthorized: report category not permitted")

	// ErrEntityRequired is returned when a report needs an entity and none was selected
	ErrEntityRequired = errors.New("an entity must be selected")

	// ErrPeriodRequired is returned when a monthly report is requested without month and year
	ErrPeriodRequired = errors.New("a month and year must be selected")

	// ErrInvalidTransition is returned for a forward skip in the user journey
	ErrInvalidTransition = errors.New("invalid session transition")
)
