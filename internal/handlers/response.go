package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/otcheredev/lab-report-portal/internal/middleware"
	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/otcheredev/lab-report-portal/internal/policy"
	"github.com/otcheredev/lab-report-portal/internal/services"
	"github.com/otcheredev/lab-report-portal/internal/session"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Error    string   `json:"error"`
	Messages []string `json:"messages"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: http.StatusText(status), Messages: []string{message}})
}

// writeError maps service and policy errors onto HTTP responses
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeMessage(w, status, message)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, policy.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials for the selected role."
	case errors.Is(err, services.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Please log in to access this page."
	case errors.Is(err, services.ErrRoleRequired):
		return http.StatusBadRequest, "Please select a role first."
	case errors.Is(err, policy.ErrUnknownRole):
		return http.StatusBadRequest, "Invalid role selection."
	case errors.Is(err, policy.ErrNoEntities),
		errors.Is(err, policy.ErrEntityNotAuthorized),
		errors.Is(err, policy.ErrCategoryNotAllowed),
		errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "You do not have the necessary permissions to access this page."
	case errors.Is(err, policy.ErrEntityRequired):
		return http.StatusBadRequest, "Please select an entity."
	case errors.Is(err, policy.ErrPeriodRequired):
		return http.StatusBadRequest, "Please select a month and year for this report."
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")
	case errors.Is(err, policy.ErrInvalidTransition):
		return http.StatusConflict, "Please complete the previous step first."
	case errors.Is(err, services.ErrFileNotFound):
		return http.StatusNotFound, "File not found."
	default:
		return http.StatusInternalServerError, "Internal server error."
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

func clientInfo(r *http.Request) services.ClientInfo {
	return services.ClientInfo{IPAddress: r.RemoteAddr, UserAgent: r.UserAgent()}
}

func currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, r, errors.New("session middleware not installed"))
		return nil, false
	}
	return sess, true
}

// authenticated loads the session and the user logged in on it
func authenticated(w http.ResponseWriter, r *http.Request, authService *services.AuthService) (*session.Session, *models.User, bool) {
	sess, ok := currentSession(w, r)
	if !ok {
		return nil, nil, false
	}
	user, err := authService.CurrentUser(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}
	return sess, user, true
}

// NotFound answers unknown routes with a JSON 404
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "The requested page was not found.")
}

// MethodNotAllowed answers with a JSON 405
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed.")
}
