package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/classpoint/classpoint/internal/academics"
	"github.com/classpoint/classpoint/internal/admins"
	"github.com/classpoint/classpoint/internal/admissions"
	"github.com/classpoint/classpoint/internal/attendance"
	"github.com/classpoint/classpoint/internal/auth"
	"github.com/classpoint/classpoint/internal/exams"
	"github.com/classpoint/classpoint/internal/messaging"
	"github.com/classpoint/classpoint/internal/observability"
	"github.com/classpoint/classpoint/internal/schools"
	"github.com/classpoint/classpoint/internal/shared"
	"github.com/classpoint/classpoint/internal/staff"
	"github.com/classpoint/classpoint/internal/students"
	"github.com/classpoint/classpoint/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	AuthHandler       *auth.Handler
	SchoolsHandler    *schools.Handler
	AdminsHandler     *admins.Handler
	StudentsHandler   *students.Handler
	StaffHandler      *staff.Handler
	AcademicsHandler  *academics.Handler
	ExamsHandler      *exams.Handler
	AttendanceHandler *attendance.Handler
	MessagingHandler  *messaging.Handler
	AdmissionsHandler *admissions.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with ClassPoint defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/schools", params.SchoolsHandler.MountRoutes)
	if params.AdminsHandler != nil {
		r.Route("/admins", params.AdminsHandler.MountRoutes)
	}
	if params.StudentsHandler != nil {
		r.Route("/students", params.StudentsHandler.MountRoutes)
		r.Route("/guardians", params.StudentsHandler.MountGuardianRoutes)
	}
	if params.StaffHandler != nil {
		r.Route("/staff", params.StaffHandler.MountRoutes)
	}
	if params.AcademicsHandler != nil {
		params.AcademicsHandler.MountRoutes(r)
	}
	if params.ExamsHandler != nil {
		r.Route("/exams", params.ExamsHandler.MountRoutes)
	}
	if params.AttendanceHandler != nil {
		r.Route("/attendance", params.AttendanceHandler.MountRoutes)
	}
	if params.MessagingHandler != nil {
		r.Route("/messages", params.MessagingHandler.MountRoutes)
		r.Route("/announcements", params.MessagingHandler.MountAnnouncementRoutes)
	}
	if params.AdmissionsHandler != nil {
		r.Route("/admissions", params.AdmissionsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
