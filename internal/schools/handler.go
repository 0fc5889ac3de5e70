package schools

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
	"github.com/classpoint/classpoint/internal/shared"
)

// Handler manages school onboarding and governance endpoints.
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

// MountRoutes registers school routes.
func (h *Handler) MountRoutes(r chi.Router) {
	// Self-registration is public: an applicant has no account yet.
	r.Post("/register", h.register)

	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireRoles(rbac.RoleSuperAdmin))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Post("/{id}/approve", h.transition(h.service.Approve))
		r.Post("/{id}/activate", h.transition(h.service.Activate))
		r.Post("/{id}/suspend", h.transition(h.service.Suspend))
		r.Post("/{id}/revert", h.transition(h.service.Revert))
		r.Post("/{id}/reject", h.reject)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.FieldErrors(w, fields)
		return
	}
	school, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, school)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Search: q.Get("search")}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		filter.Status = &status
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	paging := shared.NewPagination(page, perPage, 0)
	filter.Limit = paging.PerPage
	filter.Offset = paging.Offset()

	schools, total, err := h.service.ListSchools(r.Context(), filter)
	if err != nil {
		h.logger.Error("list schools", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"schools":    schools,
		"pagination": shared.NewPagination(paging.Page, paging.PerPage, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	school, err := h.service.GetSchool(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, school)
}

func (h *Handler) transition(apply func(ctx context.Context, actorID, schoolID int64) (*School, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		p := rbac.PrincipalFromContext(r.Context())
		if p == nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		school, err := apply(r.Context(), p.UserID, id)
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, school)
	}
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req rejectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.FieldErrors(w, fields)
		return
	}
	p := rbac.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	school, err := h.service.Reject(r.Context(), p.UserID, id, req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, school)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrAlreadyExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "a school with this name or contact already exists")
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("schools handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) validate(req any) map[string]string {
	err := h.validator.Struct(req)
	if err == nil {
		return nil
	}
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
	} else {
		fields["general"] = "invalid request"
	}
	return fields
}
