package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/lab-report-portal/internal/cache"
	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/otcheredev/lab-report-portal/internal/policy"
	"github.com/rs/zerolog/log"
)

// Config holds session cookie settings
type Config struct {
	Secret     string
	Issuer     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Session is the server-side state behind one session cookie
type Session struct {
	ID    string
	State models.SessionState
	isNew bool
}

// Stage returns the current journey stage
func (s *Session) Stage() policy.Stage {
	if s.State.Stage == "" {
		return policy.StageNoRole
	}
	return policy.Stage(s.State.Stage)
}

// Advance moves the session to stage if the journey allows it
func (s *Session) Advance(stage policy.Stage) error {
	if err := policy.Transition(s.Stage(), stage); err != nil {
		return err
	}
	s.State.Stage = string(stage)
	return nil
}

// IsNew reports whether the session was created on this request
func (s *Session) IsNew() bool {
	return s.isNew
}

// Manager stores session state in the cache, keyed by an id carried in a
// signed cookie
type Manager struct {
	cache  cache.Cache
	cfg    Config
	secret []byte
	now    func() time.Time
}

// NewManager creates a session manager
func NewManager(c cache.Cache, cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "portal_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 8 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "lab-report-portal"
	}
	return &Manager{cache: c, cfg: cfg, secret: []byte(cfg.Secret), now: time.Now}, nil
}

// Load returns the session of the request, or a fresh one when the cookie is
// missing, invalid or expired
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.fresh(), nil
	}

	claims, err := parseToken(m.secret, m.cfg.Issuer, cookie.Value)
	if err != nil {
		log.Debug().Err(err).Msg("Discarding invalid session cookie")
		return m.fresh(), nil
	}

	data, err := m.cache.Get(r.Context(), cache.SessionKey(claims.SessionID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return m.fresh(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	s := &Session{ID: claims.SessionID}
	if err := json.Unmarshal(data, &s.State); err != nil {
		log.Warn().Err(err).Str("session_id", claims.SessionID).Msg("Discarding unreadable session state")
		return m.fresh(), nil
	}
	return s, nil
}

// Save persists the state and refreshes the cookie
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	data, err := json.Marshal(s.State)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := m.cache.Set(ctx, cache.SessionKey(s.ID), data, m.cfg.TTL); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	now := m.now().UTC()
	token, err := signToken(m.secret, m.cfg.Issuer, s.ID, now, m.cfg.TTL)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(m.cfg.TTL),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.isNew = false
	return nil
}

// Rotate moves the state to a new session id, dropping the old one
func (m *Manager) Rotate(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if !s.isNew {
		if err := m.cache.Delete(ctx, cache.SessionKey(s.ID)); err != nil {
			return fmt.Errorf("failed to drop old session: %w", err)
		}
	}
	s.ID = uuid.NewString()
	return m.Save(ctx, w, s)
}

// Destroy clears the state and expires the cookie
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if err := m.cache.Delete(ctx, cache.SessionKey(s.ID)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.State = models.SessionState{Stage: string(policy.StageLoggedOut)}
	return nil
}

func (m *Manager) fresh() *Session {
	return &Session{
		ID:    uuid.NewString(),
		State: models.SessionState{Stage: string(policy.StageNoRole)},
		isNew: true,
	}
}
