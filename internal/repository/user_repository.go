package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/otcheredev/lab-report-portal/internal/auth"
	"github.com/otcheredev/lab-report-portal/internal/models"
	"gorm.io/gorm"
)

// ErrUserExists is returned when creating a user whose username is taken
var ErrUserExists = errors.New("username already exists")

// UserStore is the credential store used by the portal
type UserStore interface {
	auth.UserLookup
	Create(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
}

// UserRepository handles portal user database operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	var existing int64
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", user.Username).
		Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if existing > 0 {
		return ErrUserExists
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ListByRole retrieves all users holding a role
func (r *UserRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("username ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Count returns the number of stored users
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
