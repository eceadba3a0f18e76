package handlers

import (
	"net/http"

	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/otcheredev/lab-report-portal/internal/policy"
	"github.com/otcheredev/lab-report-portal/internal/services"
	"github.com/otcheredev/lab-report-portal/internal/session"
)

type SessionHandler struct {
	authService *services.AuthService
	sessions    *session.Manager
}

func NewSessionHandler(authService *services.AuthService, sessions *session.Manager) *SessionHandler {
	return &SessionHandler{
		authService: authService,
		sessions:    sessions,
	}
}

type selectRoleRequest struct {
	Role models.Role `json:"role"`
}

type sessionResponse struct {
	Stage          policy.Stage          `json:"stage"`
	SelectedRole   models.Role           `json:"selected_role,omitempty"`
	User           *models.User          `json:"user,omitempty"`
	SelectedEntity string                `json:"selected_entity,omitempty"`
	ReportCategory models.ReportCategory `json:"report_type,omitempty"`
	Month          int                   `json:"month,omitempty"`
	Year           int                   `json:"year,omitempty"`
}

// Roles lists the selectable roles
func (h *SessionHandler) Roles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.authService.Roles())
}

// Current describes the caller's session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	response := sessionResponse{
		Stage:          sess.Stage(),
		SelectedRole:   sess.State.SelectedRole,
		SelectedEntity: sess.State.SelectedEntity,
		ReportCategory: sess.State.ReportCategory,
		Month:          sess.State.Month,
		Year:           sess.State.Year,
	}
	if user, err := h.authService.CurrentUser(r.Context(), sess); err == nil {
		response.User = user
	}
	writeJSON(w, http.StatusOK, response)
}

// SelectRole starts a journey for a role
func (h *SessionHandler) SelectRole(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req selectRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.authService.SelectRole(sess, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sessions.Save(r.Context(), w, sess); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Login authenticates the caller for the selected role
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	var creds models.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}

	result, err := h.authService.Login(r.Context(), sess, creds, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sessions.Rotate(r.Context(), w, sess); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Logout clears the session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Destroy(r.Context(), w, sess); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stage":    policy.StageLoggedOut,
		"messages": []string{"You have been logged out."},
	})
}
