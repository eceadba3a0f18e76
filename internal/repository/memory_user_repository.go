package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/lab-report-portal/internal/auth"
	"github.com/otcheredev/lab-report-portal/internal/models"
)

// MemoryUserRepository keeps users in process memory. It backs the portal
// when no database is configured.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewMemoryUserRepository creates an empty in-memory user store
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]models.User)}
}

// Create adds a user
func (r *MemoryUserRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; exists {
		return ErrUserExists
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.Username] = cloneUser(*user)
	return nil
}

// GetByUsername retrieves a user by username
func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	clone := cloneUser(user)
	return &clone, nil
}

// ListByRole retrieves all users holding a role, ordered by username
func (r *MemoryUserRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []models.User
	for _, user := range r.users {
		if user.Role == role {
			users = append(users, cloneUser(user))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// Count returns the number of stored users
func (r *MemoryUserRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func cloneUser(u models.User) models.User {
	u.Entities = append([]string(nil), u.Entities...)
	return u
}
