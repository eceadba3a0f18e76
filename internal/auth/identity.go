package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/otcheredev/lab-report-portal/internal/policy"
	"github.com/rs/zerolog/log"
)

// ErrUserNotFound is returned by user lookups that find nothing
var ErrUserNotFound = errors.New("user not found")

// UserLookup is the read side of the credential store
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

// Authenticator resolves submitted credentials to a user record
type Authenticator struct {
	users  UserLookup
	policy *policy.Policy
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(users UserLookup, p *policy.Policy) *Authenticator {
	return &Authenticator{users: users, policy: p}
}

// Authenticate matches credentials for the selected role. Every mismatch
// yields policy.ErrInvalidCredentials; store failures are returned wrapped.
func (a *Authenticator) Authenticate(ctx context.Context, role models.Role, creds models.Credentials) (*models.User, error) {
	profile, err := a.policy.Role(role)
	if err != nil {
		return nil, policy.ErrInvalidCredentials
	}

	switch profile.Credential {
	case policy.CredentialPatientIdentity:
		return a.matchPatient(ctx, creds)
	case policy.CredentialEmailPassword:
		return a.matchEmail(ctx, role, creds)
	default:
		return a.matchUsername(ctx, role, creds)
	}
}

func (a *Authenticator) matchUsername(ctx context.Context, role models.Role, creds models.Credentials) (*models.User, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return nil, policy.ErrInvalidCredentials
	}

	user, err := a.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, policy.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.Role != role {
		log.Debug().Str("username", username).Str("role", role.String()).Msg("Role mismatch on login")
		return nil, policy.ErrInvalidCredentials
	}
	if CheckPassword(user.PasswordHash, creds.Password) != nil {
		return nil, policy.ErrInvalidCredentials
	}
	return user, nil
}

func (a *Authenticator) matchEmail(ctx context.Context, role models.Role, creds models.Credentials) (*models.User, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, policy.ErrInvalidCredentials
	}

	users, err := a.users.ListByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for i := range users {
		if users[i].Email == "" || !strings.EqualFold(users[i].Email, email) {
			continue
		}
		if CheckPassword(users[i].PasswordHash, creds.Password) == nil {
			return &users[i], nil
		}
	}
	return nil, policy.ErrInvalidCredentials
}

func (a *Authenticator) matchPatient(ctx context.Context, creds models.Credentials) (*models.User, error) {
	lastName := strings.TrimSpace(creds.LastName)
	dob := strings.TrimSpace(creds.DateOfBirth)
	ssn := strings.TrimSpace(creds.SSNLast4)
	if lastName == "" || dob == "" || ssn == "" {
		return nil, policy.ErrInvalidCredentials
	}

	patients, err := a.users.ListByRole(ctx, models.RolePatient)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	var match *models.User
	for i := range patients {
		p := &patients[i]
		if !strings.EqualFold(p.LastName, lastName) || p.DateOfBirth != dob {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(p.SSNLast4), []byte(ssn)) != 1 {
			continue
		}
		if match != nil {
			log.Warn().Msg("Patient credentials match more than one record")
			return nil, policy.ErrInvalidCredentials
		}
		match = p
	}

	if match == nil || match.PatientID == "" {
		return nil, policy.ErrInvalidCredentials
	}
	return match, nil
}
