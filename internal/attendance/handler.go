package attendance

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/classpoint/classpoint/internal/platform/httpx"
	"github.com/classpoint/classpoint/internal/rbac"
)

// Handler manages attendance endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, gate: gate, validator: validator.New()}
}

// MountRoutes registers attendance routes. Teachers pass on role; admins
// need the capability.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(rbac.Requirement{Roles: []rbac.Role{rbac.RoleStudent}, RequireTenant: true}))
		r.Get("/me", h.myHistory)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireCapability(rbac.CapAttendance, rbac.RoleTeacher))
		r.Post("/register", h.recordRegister)
		r.Get("/classes/{classID}", h.classRegister)
		r.Get("/students/{studentID}", h.studentHistory)
	})
}

func (h *Handler) recordRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				fields[fieldErr.Field()] = fieldErr.Tag()
			}
		} else {
			fields["general"] = "invalid request"
		}
		httpx.FieldErrors(w, fields)
		return
	}
	records, err := h.service.RecordRegister(r.Context(), rbac.PrincipalFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) classRegister(w http.ResponseWriter, r *http.Request) {
	classID, err := strconv.ParseInt(chi.URLParam(r, "classID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		httpx.FieldErrors(w, map[string]string{"date": "required, format 2006-01-02"})
		return
	}
	records, err := h.service.ClassRegister(r.Context(), rbac.PrincipalFromContext(r.Context()), classID, date)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) studentHistory(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		httpx.FieldErrors(w, map[string]string{"range": "from and to required, format 2006-01-02"})
		return
	}
	records, err := h.service.StudentHistory(r.Context(), rbac.PrincipalFromContext(r.Context()), studentID, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) myHistory(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httpx.FieldErrors(w, map[string]string{"range": "from and to required, format 2006-01-02"})
		return
	}
	records, err := h.service.MyHistory(r.Context(), rbac.PrincipalFromContext(r.Context()), from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": records})
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidStatus):
		httpx.FieldErrors(w, map[string]string{"status": "must be present, absent, late or excused"})
	default:
		h.logger.Error("attendance handler", slog.Any("error", err))
		httpx.RespondError(w, rbac.BoundaryError(err))
	}
}
