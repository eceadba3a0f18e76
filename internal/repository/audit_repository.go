package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/lab-report-portal/internal/models"
	"gorm.io/gorm"
)

// AuditStore records and lists audit entries
type AuditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
	GetByUsername(ctx context.Context, username string, limit, offset int) ([]models.AuditLog, error)
}

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create creates a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// GetByUsername retrieves audit logs for a user, newest first
func (r *AuditRepository) GetByUsername(ctx context.Context, username string, limit, offset int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	query := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}

	return logs, nil
}

// MemoryAuditRepository keeps a bounded in-process audit trail
type MemoryAuditRepository struct {
	mu      sync.Mutex
	logs    []models.AuditLog
	maxSize int
}

// NewMemoryAuditRepository creates an in-memory audit store holding at most maxSize entries
func NewMemoryAuditRepository(maxSize int) *MemoryAuditRepository {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryAuditRepository{maxSize: maxSize}
}

// Create appends an audit entry, dropping the oldest when full
func (r *MemoryAuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	r.logs = append(r.logs, *log)
	if len(r.logs) > r.maxSize {
		r.logs = r.logs[len(r.logs)-r.maxSize:]
	}
	return nil
}

// GetByUsername retrieves audit logs for a user, newest first
func (r *MemoryAuditRepository) GetByUsername(ctx context.Context, username string, limit, offset int) ([]models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var logs []models.AuditLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].Username == username {
			logs = append(logs, r.logs[i])
		}
	}
	if offset > 0 {
		if offset >= len(logs) {
			return nil, nil
		}
		logs = logs[offset:]
	}
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
