package exams

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/classpoint/classpoint/internal/platform/httpx"
	"github.com/classpoint/classpoint/internal/rbac"
)

// Handler manages exam and result endpoints.
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

// MountRoutes registers exam routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(rbac.Requirement{
			Roles:         []rbac.Role{rbac.RoleStudent, rbac.RoleGuardian},
			RequireTenant: true,
		}))
		r.Get("/results/me", h.myResults)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireCapability(rbac.CapExams, rbac.RoleTeacher))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireCapability(rbac.CapExams))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Post("/{id}/publish", h.publish(h.service.Publish))
		r.Post("/{id}/unpublish", h.publish(h.service.Unpublish))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireCapability(rbac.CapResults, rbac.RoleTeacher))
		r.Get("/{id}/results", h.examResults)
		r.Post("/{id}/results", h.recordResult)
		r.Get("/results/students/{studentID}", h.studentResults)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	exams, err := h.service.ListExams(r.Context(), rbac.PrincipalFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"exams": exams})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	exam, err := h.service.GetExam(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, exam)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req ExamRequest
	if !h.decode(w, r, &req) {
		return
	}
	exam, err := h.service.CreateExam(r.Context(), rbac.PrincipalFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, exam)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req ExamRequest
	if !h.decode(w, r, &req) {
		return
	}
	exam, err := h.service.UpdateExam(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, exam)
}

func (h *Handler) publish(apply func(ctx context.Context, actor *rbac.Principal, id int64) (*Exam, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		exam, err := apply(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, exam)
	}
}

func (h *Handler) examResults(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	results, err := h.service.ExamResults(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) recordResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req ResultRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.RecordResult(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) studentResults(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	results, err := h.service.StudentResults(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) myResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.MyResults(r.Context(), rbac.PrincipalFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := httpx.DecodeJSON(r, req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return false
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
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrAlreadyExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "an exam with this name and term already exists")
	default:
		h.logger.Error("exams handler", slog.Any("error", err))
		httpx.RespondError(w, rbac.BoundaryError(err))
	}
}
