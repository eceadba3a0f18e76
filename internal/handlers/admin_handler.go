package handlers

import (
	"net/http"

	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/otcheredev/lab-report-portal/internal/services"
)

type AdminHandler struct {
	authService *services.AuthService
}

func NewAdminHandler(authService *services.AuthService) *AdminHandler {
	return &AdminHandler{authService: authService}
}

// RegisterPhysician creates a physician/provider account
func (h *AdminHandler) RegisterPhysician(w http.ResponseWriter, r *http.Request) {
	_, actor, ok := authenticated(w, r, h.authService)
	if !ok {
		return
	}

	var req models.PhysicianRegistrationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.RegisterPhysician(r.Context(), actor, &req, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":     user,
		"messages": []string{"Physician/Provider registered successfully!"},
	})
}
