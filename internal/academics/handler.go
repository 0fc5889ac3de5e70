package academics

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/classpoint/classpoint/internal/platform/httpx"
	"github.com/classpoint/classpoint/internal/rbac"
)

// Handler manages academic catalog endpoints. Each entity group carries its
// own capability; teachers get read access on their role.
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

// MountRoutes registers class, subject, course and schedule routes.
func (h *Handler) MountRoutes(r chi.Router) {
	// Reads admit the extra roles on their role alone; writes stay behind the
	// capability gate.
	r.Route("/classes", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireCapability(rbac.CapClasses, rbac.RoleTeacher))
			r.Get("/", h.listClasses)
			r.Get("/{id}", h.showClass)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireCapability(rbac.CapClasses))
			r.Post("/", h.createClass)
			r.Put("/{id}", h.updateClass)
		})
	})
	r.Route("/subjects", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireCapability(rbac.CapSubjects, rbac.RoleTeacher))
			r.Get("/", h.listSubjects)
			r.Get("/{id}", h.showSubject)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireCapability(rbac.CapSubjects))
			r.Post("/", h.createSubject)
			r.Put("/{id}", h.updateSubject)
			r.Delete("/{id}", h.deleteSubject)
		})
	})
	r.Route("/courses", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireCapability(rbac.CapCourses, rbac.RoleTeacher))
			r.Get("/", h.listCourses)
			r.Get("/{id}", h.showCourse)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireCapability(rbac.CapCourses))
			r.Post("/", h.createCourse)
			r.Put("/{id}", h.updateCourse)
		})
	})
	r.Route("/schedule", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireCapability(rbac.CapSchedule, rbac.RoleTeacher, rbac.RoleStudent, rbac.RoleGuardian))
			r.Get("/", h.listLessons)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.gate.RequireCapability(rbac.CapSchedule))
			r.Post("/", h.createLesson)
			r.Delete("/{id}", h.deleteLesson)
		})
	})
}

func (h *Handler) listClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.service.ListClasses(r.Context(), rbac.PrincipalFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"classes": classes})
}

func (h *Handler) showClass(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	class, err := h.service.GetClass(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, class)
}

func (h *Handler) createClass(w http.ResponseWriter, r *http.Request) {
	var req ClassRequest
	if !h.decode(w, r, &req) {
		return
	}
	class, err := h.service.CreateClass(r.Context(), rbac.PrincipalFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, class)
}

func (h *Handler) updateClass(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req ClassRequest
	if !h.decode(w, r, &req) {
		return
	}
	class, err := h.service.UpdateClass(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, class)
}

func (h *Handler) listSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.service.ListSubjects(r.Context(), rbac.PrincipalFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"subjects": subjects})
}

func (h *Handler) showSubject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	subject, err := h.service.GetSubject(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, subject)
}

func (h *Handler) createSubject(w http.ResponseWriter, r *http.Request) {
	var req SubjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	subject, err := h.service.CreateSubject(r.Context(), rbac.PrincipalFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, subject)
}

func (h *Handler) updateSubject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req SubjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	subject, err := h.service.UpdateSubject(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, subject)
}

func (h *Handler) deleteSubject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.DeleteSubject(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	var classID *int64
	if raw := r.URL.Query().Get("class_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			classID = &id
		}
	}
	courses, err := h.service.ListCourses(r.Context(), rbac.PrincipalFromContext(r.Context()), classID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"courses": courses})
}

func (h *Handler) showCourse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	course, err := h.service.GetCourse(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) createCourse(w http.ResponseWriter, r *http.Request) {
	var req CourseRequest
	if !h.decode(w, r, &req) {
		return
	}
	course, err := h.service.CreateCourse(r.Context(), rbac.PrincipalFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, course)
}

func (h *Handler) updateCourse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req CourseRequest
	if !h.decode(w, r, &req) {
		return
	}
	course, err := h.service.UpdateCourse(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) listLessons(w http.ResponseWriter, r *http.Request) {
	var classID *int64
	if raw := r.URL.Query().Get("class_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			classID = &id
		}
	}
	lessons, err := h.service.ListLessons(r.Context(), rbac.PrincipalFromContext(r.Context()), classID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lessons": lessons})
}

func (h *Handler) createLesson(w http.ResponseWriter, r *http.Request) {
	var req LessonRequest
	if !h.decode(w, r, &req) {
		return
	}
	lesson, err := h.service.CreateLesson(r.Context(), rbac.PrincipalFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lesson)
}

func (h *Handler) deleteLesson(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.DeleteLesson(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
		httpx.Problem(w, http.StatusConflict, "Duplicate", "a record with this name or code already exists")
	case errors.Is(err, ErrInUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", "record is referenced by courses and cannot be deleted")
	default:
		h.logger.Error("academics handler", slog.Any("error", err))
		httpx.RespondError(w, rbac.BoundaryError(err))
	}
}
