package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role represents a coarse permission class of a portal user
type Role string

const (
	RoleAdmin              Role = "admin"
	RoleBusinessDevManager Role = "business_dev_manager"
	RolePhysicianProvider  Role = "physician_provider"
	RolePatient            Role = "patient"
)

// String returns the role identifier
func (r Role) String() string {
	return string(r)
}

// User represents one portal account
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Username     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Role         Role      `gorm:"type:varchar(50);not null;index" json:"role"`
	PasswordHash string    `gorm:"type:text" json:"-"`
	Email        string    `gorm:"type:varchar(255);index" json:"email,omitempty"`
	FullName     string    `gorm:"type:varchar(255)" json:"full_name,omitempty"`

	// Patient credential fields
	LastName    string `gorm:"type:varchar(255)" json:"-"`
	DateOfBirth string `gorm:"type:varchar(10)" json:"-"`
	SSNLast4    string `gorm:"type:varchar(4)" json:"-"`
	PatientID   string `gorm:"type:varchar(64);index" json:"patient_id,omitempty"`

	Entities []string `gorm:"serializer:json" json:"entities"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "portal_users"
}

// BeforeCreate hook
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// DisplayName returns the full name when one is set
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Credentials carries the login payload for any role. Which fields are
// read depends on the credential strategy of the selected role.
type Credentials struct {
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	Password    string `json:"password,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	DateOfBirth string `json:"dob,omitempty"`
	SSNLast4    string `json:"ssn_last4,omitempty"`
}

// PhysicianRegistrationRequest represents an admin request to add a physician/provider
type PhysicianRegistrationRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FullName        string `json:"full_name"`
	Entity          string `json:"entity"`
}
