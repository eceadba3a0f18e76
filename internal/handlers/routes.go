package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/lab-report-portal/internal/middleware"
	"github.com/otcheredev/lab-report-portal/internal/session"
)

// Routes wires the portal's handlers onto a router
type Routes struct {
	Health   *HealthHandler
	Session  *SessionHandler
	Report   *ReportHandler
	Admin    *AdminHandler
	Sessions *session.Manager

	// LoginLimiter guards the login endpoint when set
	LoginLimiter func(http.Handler) http.Handler
}

// Mount registers every route on r
func (rt Routes) Mount(r chi.Router) {
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	// Health endpoints
	r.Get("/health", rt.Health.Health)
	r.Get("/ready", rt.Health.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Sessions(rt.Sessions))

		r.Get("/options", rt.Report.Options)

		// Session journey
		r.Get("/session", rt.Session.Current)
		r.Get("/session/roles", rt.Session.Roles)
		r.Post("/session/role", rt.Session.SelectRole)
		if rt.LoginLimiter != nil {
			r.With(rt.LoginLimiter).Post("/session/login", rt.Session.Login)
		} else {
			r.Post("/session/login", rt.Session.Login)
		}
		r.Post("/session/logout", rt.Session.Logout)

		// Reports
		r.Get("/entities", rt.Report.Entities)
		r.Post("/entities/select", rt.Report.SelectEntity)
		r.Get("/reports/types", rt.Report.ReportTypes)
		r.Post("/reports/select", rt.Report.SelectReport)
		r.Get("/dashboard", rt.Report.Dashboard)
		r.Get("/dashboard/export", rt.Report.ExportBonus)
		r.Get("/patient-results", rt.Report.PatientResults)
		r.Get("/files/*", rt.Report.File)

		// Administration
		r.Post("/physicians", rt.Admin.RegisterPhysician)
	})
}
