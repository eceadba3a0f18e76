package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/otcheredev/lab-report-portal/internal/auth"
	"github.com/otcheredev/lab-report-portal/internal/metrics"
	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/otcheredev/lab-report-portal/internal/policy"
	"github.com/otcheredev/lab-report-portal/internal/repository"
	"github.com/otcheredev/lab-report-portal/internal/session"
	"github.com/rs/zerolog/log"
)

// LoginResult describes where a freshly logged-in user goes next
type LoginResult struct {
	User           *models.User   `json:"user"`
	Landing        policy.Landing `json:"landing"`
	Entities       []string       `json:"entities,omitempty"`
	SelectedEntity string         `json:"selected_entity,omitempty"`
}

// AuthService handles role selection, login and account management
type AuthService struct {
	authenticator *auth.Authenticator
	users         repository.UserStore
	policy        *policy.Policy
	metrics       *metrics.Metrics
	audit         auditor
}

// NewAuthService creates a new auth service
func NewAuthService(
	users repository.UserStore,
	auditRepo repository.AuditStore,
	p *policy.Policy,
	m *metrics.Metrics,
) *AuthService {
	return &AuthService{
		authenticator: auth.NewAuthenticator(users, p),
		users:         users,
		policy:        p,
		metrics:       m,
		audit:         auditor{store: auditRepo},
	}
}

// Roles lists the roles a visitor can pick from
func (s *AuthService) Roles() []policy.RoleProfile {
	return s.policy.Roles()
}

// SelectRole starts a journey for the given role. Any earlier login on the
// session is forgotten.
func (s *AuthService) SelectRole(sess *session.Session, role models.Role) (policy.RoleProfile, error) {
	profile, err := s.policy.Role(role)
	if err != nil {
		return policy.RoleProfile{}, fmt.Errorf("%w: invalid role selection", ErrValidation)
	}
	if err := sess.Advance(policy.StageRoleSelected); err != nil {
		return policy.RoleProfile{}, err
	}
	sess.State = models.SessionState{
		Stage:        string(policy.StageRoleSelected),
		SelectedRole: role,
	}
	return profile, nil
}

// Login authenticates the credentials against the role chosen earlier on
// the session and records the user on it
func (s *AuthService) Login(ctx context.Context, sess *session.Session, creds models.Credentials, client ClientInfo) (*LoginResult, error) {
	started := time.Now()
	role := sess.State.SelectedRole
	if role == "" {
		return nil, ErrRoleRequired
	}
	if err := policy.Transition(sess.Stage(), policy.StageAuthenticated); err != nil {
		return nil, err
	}

	result, err := s.login(ctx, sess, role, creds)

	status := models.AuditStatusSuccess
	if err != nil {
		status = models.AuditStatusFailure
	}
	s.metrics.LoginAttempts.WithLabelValues(role.String(), status).Inc()

	s.audit.record(ctx, models.AuditLog{
		Username:     loginName(creds),
		Role:         role,
		Action:       models.AuditActionLogin,
		ResourceType: "session",
	}, client, started, err)

	if err != nil {
		log.Info().Str("role", role.String()).Str("ip", client.IPAddress).Msg("Login failed")
		return nil, err
	}
	log.Info().Str("username", result.User.Username).Str("role", role.String()).Msg("User logged in")
	return result, nil
}

func (s *AuthService) login(ctx context.Context, sess *session.Session, role models.Role, creds models.Credentials) (*LoginResult, error) {
	user, err := s.authenticator.Authenticate(ctx, role, creds)
	if err != nil {
		return nil, err
	}

	profile, err := s.policy.Role(user.Role)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{User: user, Landing: profile.Landing}
	if profile.Landing == policy.LandingSelectEntity {
		entities, err := s.policy.SelectableEntities(user)
		if err != nil {
			return nil, err
		}
		result.Entities = entities
		if user.Role == models.RolePhysicianProvider && len(entities) == 1 {
			result.SelectedEntity = entities[0]
		}
	}

	if err := sess.Advance(policy.StageAuthenticated); err != nil {
		return nil, err
	}
	sess.State.Username = user.Username
	sess.State.Role = user.Role
	sess.State.PatientID = user.PatientID
	sess.State.SelectedEntity = result.SelectedEntity
	sess.State.ReportCategory = ""
	sess.State.Month, sess.State.Year = 0, 0

	return result, nil
}

func loginName(creds models.Credentials) string {
	switch {
	case creds.Username != "":
		return creds.Username
	case creds.Email != "":
		return strings.ToLower(creds.Email)
	default:
		return creds.LastName
	}
}

// CurrentUser returns the user logged in on the session
func (s *AuthService) CurrentUser(ctx context.Context, sess *session.Session) (*models.User, error) {
	if !sess.State.Authenticated() || !policy.Reached(sess.Stage(), policy.StageAuthenticated) {
		return nil, ErrNotAuthenticated
	}
	user, err := s.users.GetByUsername(ctx, sess.State.Username)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Role != sess.State.Role {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

// RegisterPhysician creates a physician/provider account. Only admins may
// call it.
func (s *AuthService) RegisterPhysician(ctx context.Context, actor *models.User, req *models.PhysicianRegistrationRequest, client ClientInfo) (*models.User, error) {
	started := time.Now()
	user, err := s.registerPhysician(ctx, actor, req)

	s.audit.record(ctx, models.AuditLog{
		Username:     actor.Username,
		Role:         actor.Role,
		Action:       models.AuditActionRegister,
		ResourceType: "user",
		ResourceID:   strings.TrimSpace(req.Username),
	}, client, started, err)

	return user, err
}

func (s *AuthService) registerPhysician(ctx context.Context, actor *models.User, req *models.PhysicianRegistrationRequest) (*models.User, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	fullName := strings.TrimSpace(req.FullName)
	if username == "" || email == "" || req.Password == "" || req.ConfirmPassword == "" || fullName == "" || req.Entity == "" {
		return nil, fmt.Errorf("%w: all fields are required", ErrValidation)
	}
	if req.Password != req.ConfirmPassword {
		return nil, fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	if !s.policy.Catalog().HasEntity(req.Entity) {
		return nil, fmt.Errorf("%w: invalid entity selected", ErrValidation)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Role:         models.RolePhysicianProvider,
		PasswordHash: hash,
		Email:        email,
		FullName:     fullName,
		Entities:     []string{req.Entity},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("failed to register physician: %w", err)
	}

	log.Info().Str("username", username).Str("entity", req.Entity).Str("by", actor.Username).Msg("Physician registered")
	return user, nil
}
