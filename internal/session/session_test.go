package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/otcheredev/lab-report-portal/internal/cache"
	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/otcheredev/lab-report-portal/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newManager(t *testing.T) (*Manager, *cache.MemoryCache) {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })
	m, err := NewManager(c, Config{Secret: testSecret, TTL: time.Hour})
	require.NoError(t, err)
	return m, c
}

// requestWith builds a request carrying the cookies set on rec
func requestWith(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager(cache.NewMemoryCache(), Config{})
	assert.Error(t, err)
}

func TestLoadWithoutCookie(t *testing.T) {
	m, _ := newManager(t)

	s, err := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, s.IsNew())
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, policy.StageNoRole, s.Stage())
}

func TestSaveAndLoad(t *testing.T) {
	m, c := newManager(t)
	ctx := context.Background()

	s, err := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	s.State.SelectedRole = models.RoleAdmin
	require.NoError(t, s.Advance(policy.StageRoleSelected))

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(ctx, rec, s))
	assert.False(t, s.IsNew())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "portal_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	exists, err := c.Exists(ctx, cache.SessionKey(s.ID))
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := m.Load(requestWith(rec))
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
	assert.False(t, loaded.IsNew())
	assert.Equal(t, models.RoleAdmin, loaded.State.SelectedRole)
	assert.Equal(t, policy.StageRoleSelected, loaded.Stage())
}

func TestLoadRejectsTamperedCookie(t *testing.T) {
	m, _ := newManager(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "portal_session", Value: "not-a-token"})
	s, err := m.Load(r)
	require.NoError(t, err)
	assert.True(t, s.IsNew())

	other, err := NewManager(cache.NewMemoryCache(), Config{Secret: "another-secret-another-secret-xx"})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, other.Save(context.Background(), rec, other.fresh()))

	s, err = m.Load(requestWith(rec))
	require.NoError(t, err)
	assert.True(t, s.IsNew())
}

func TestLoadExpiredState(t *testing.T) {
	m, c := newManager(t)
	ctx := context.Background()

	s := m.fresh()
	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(ctx, rec, s))
	require.NoError(t, c.Delete(ctx, cache.SessionKey(s.ID)))

	loaded, err := m.Load(requestWith(rec))
	require.NoError(t, err)
	assert.True(t, loaded.IsNew())
	assert.NotEqual(t, s.ID, loaded.ID)
}

func TestRotate(t *testing.T) {
	m, c := newManager(t)
	ctx := context.Background()

	s := m.fresh()
	require.NoError(t, m.Save(ctx, httptest.NewRecorder(), s))
	oldID := s.ID

	rec := httptest.NewRecorder()
	require.NoError(t, m.Rotate(ctx, rec, s))
	assert.NotEqual(t, oldID, s.ID)

	exists, err := c.Exists(ctx, cache.SessionKey(oldID))
	require.NoError(t, err)
	assert.False(t, exists)

	loaded, err := m.Load(requestWith(rec))
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
}

func TestDestroy(t *testing.T) {
	m, c := newManager(t)
	ctx := context.Background()

	s := m.fresh()
	s.State.Username = "AndrewS"
	s.State.Role = models.RoleAdmin
	require.NoError(t, m.Save(ctx, httptest.NewRecorder(), s))

	rec := httptest.NewRecorder()
	require.NoError(t, m.Destroy(ctx, rec, s))

	assert.Equal(t, policy.StageLoggedOut, s.Stage())
	assert.False(t, s.State.Authenticated())
	exists, err := c.Exists(ctx, cache.SessionKey(s.ID))
	require.NoError(t, err)
	assert.False(t, exists)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestAdvance(t *testing.T) {
	s := &Session{}
	assert.Equal(t, policy.StageNoRole, s.Stage())
	assert.ErrorIs(t, s.Advance(policy.StageAuthenticated), policy.ErrInvalidTransition)
	assert.Equal(t, policy.StageNoRole, s.Stage())

	require.NoError(t, s.Advance(policy.StageRoleSelected))
	require.NoError(t, s.Advance(policy.StageAuthenticated))
	require.NoError(t, s.Advance(policy.StageLoggedOut))
	assert.Equal(t, policy.StageLoggedOut, s.Stage())
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Now()
	token, err := signToken([]byte(testSecret), "issuer", "sid-1", now, time.Minute)
	require.NoError(t, err)

	claims, err := parseToken([]byte(testSecret), "issuer", token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SessionID)

	_, err = parseToken([]byte(testSecret), "someone-else", token)
	assert.Error(t, err)

	expired, err := signToken([]byte(testSecret), "issuer", "sid-1", now.Add(-2*time.Hour), time.Minute)
	require.NoError(t, err)
	_, err = parseToken([]byte(testSecret), "issuer", expired)
	assert.Error(t, err)
}
