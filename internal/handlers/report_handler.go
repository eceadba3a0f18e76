package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/lab-report-portal/internal/policy"
	"github.com/otcheredev/lab-report-portal/internal/services"
	"github.com/otcheredev/lab-report-portal/internal/session"
	"github.com/rs/zerolog/log"
)

type ReportHandler struct {
	authService   *services.AuthService
	reportService *services.ReportService
	sessions      *session.Manager
	policy        *policy.Policy
}

func NewReportHandler(
	authService *services.AuthService,
	reportService *services.ReportService,
	sessions *session.Manager,
	p *policy.Policy,
) *ReportHandler {
	return &ReportHandler{
		authService:   authService,
		reportService: reportService,
		sessions:      sessions,
		policy:        p,
	}
}

type selectEntityRequest struct {
	Entity string `json:"entity"`
}

// Options lists the month and year choices
func (h *ReportHandler) Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"months": policy.Months(),
		"years":  h.policy.Years(time.Now()),
	})
}

// Entities lists the entities the caller may select
func (h *ReportHandler) Entities(w http.ResponseWriter, r *http.Request) {
	_, user, ok := authenticated(w, r, h.authService)
	if !ok {
		return
	}

	entities, err := h.reportService.Entities(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entities": entities})
}

// SelectEntity records the entity the caller works with
func (h *ReportHandler) SelectEntity(w http.ResponseWriter, r *http.Request) {
	sess, user, ok := authenticated(w, r, h.authService)
	if !ok {
		return
	}

	var req selectEntityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.reportService.SelectEntity(sess, user, req.Entity); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sessions.Save(r.Context(), w, sess); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"selected_entity": req.Entity,
		"messages":        []string{fmt.Sprintf("Entity %q selected.", req.Entity)},
	})
}

// ReportTypes lists the report categories of the caller's role
func (h *ReportHandler) ReportTypes(w http.ResponseWriter, r *http.Request) {
	_, user, ok := authenticated(w, r, h.authService)
	if !ok {
		return
	}

	types, err := h.reportService.ReportTypes(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report_types": types})
}

// SelectReport records a report selection
func (h *ReportHandler) SelectReport(w http.ResponseWriter, r *http.Request) {
	sess, user, ok := authenticated(w, r, h.authService)
	if !ok {
		return
	}

	var sel services.ReportSelection
	if !decodeJSON(w, r, &sel) {
		return
	}

	if err := h.reportService.SelectReport(sess, user, sel); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sessions.Save(r.Context(), w, sess); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"report_type":     sess.State.ReportCategory,
		"selected_entity": sess.State.SelectedEntity,
		"month":           sess.State.Month,
		"year":            sess.State.Year,
	})
}

// Dashboard renders the selected report
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, user, ok := authenticated(w, r, h.authService)
	if !ok {
		return
	}

	dashboard, err := h.reportService.Dashboard(r.Context(), sess, user, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sessions.Save(r.Context(), w, sess); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

// ExportBonus downloads the monthly bonus summary as a workbook
func (h *ReportHandler) ExportBonus(w http.ResponseWriter, r *http.Request) {
	sess, user, ok := authenticated(w, r, h.authService)
	if !ok {
		return
	}

	data, filename, err := h.reportService.ExportBonus(r.Context(), sess, user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// PatientResults lists patient result files
func (h *ReportHandler) PatientResults(w http.ResponseWriter, r *http.Request) {
	sess, user, ok := authenticated(w, r, h.authService)
	if !ok {
		return
	}

	results, err := h.reportService.PatientResults(r.Context(), sess, user, r.URL.Query().Get("patient_id"), clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sessions.Save(r.Context(), w, sess); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// File streams a report file after re-checking the caller's access
func (h *ReportHandler) File(w http.ResponseWriter, r *http.Request) {
	_, user, ok := authenticated(w, r, h.authService)
	if !ok {
		return
	}

	key := chi.URLParam(r, "*")
	rc, file, err := h.reportService.OpenFile(r.Context(), user, key, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(file.DisplayName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": file.DisplayName}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		log.Warn().Err(err).Str("key", key).Msg("File stream interrupted")
	}
}
