package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the signed claims carried by the session cookie
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionState holds everything the portal remembers between requests
type SessionState struct {
	Stage          string         `json:"stage"`
	SelectedRole   Role           `json:"selected_role,omitempty"`
	Username       string         `json:"username,omitempty"`
	Role           Role           `json:"role,omitempty"`
	PatientID      string         `json:"patient_id,omitempty"`
	SelectedEntity string         `json:"selected_entity,omitempty"`
	ReportCategory ReportCategory `json:"report_category,omitempty"`
	Month          int            `json:"month,omitempty"`
	Year           int            `json:"year,omitempty"`
}

// Authenticated reports whether a user has logged in on this session
func (s *SessionState) Authenticated() bool {
	return s.Username != "" && s.Role != ""
}
