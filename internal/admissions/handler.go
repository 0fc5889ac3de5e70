package admissions

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

// Handler manages admission endpoints.
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

// MountRoutes registers admission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	// Applicants have no account yet.
	r.Post("/apply", h.apply)

	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireCapability(rbac.CapApplications))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Post("/{id}/accept", h.decide(h.service.Accept))
		r.Post("/{id}/reject", h.decide(h.service.Reject))
	})
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
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
	app, err := h.service.Apply(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, app)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p := rbac.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	filter := ListFilter{}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		filter.Status = &status
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	paging := shared.NewPagination(page, perPage, 0)
	filter.Limit = paging.PerPage
	filter.Offset = paging.Offset()

	apps, total, err := h.service.List(r.Context(), p, filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"applications": apps,
		"pagination":   shared.NewPagination(paging.Page, paging.PerPage, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	app, err := h.service.Get(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

type decisionRequest struct {
	Note *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

func (h *Handler) decide(apply func(ctx context.Context, actor *rbac.Principal, id int64, note *string) (*Application, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		var req decisionRequest
		if r.ContentLength > 0 {
			if err := httpx.DecodeJSON(r, &req); err != nil {
				httpx.RespondError(w, httpx.ErrValidation)
				return
			}
		}
		app, err := apply(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.Note)
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, app)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrAlreadyDecided):
		httpx.Problem(w, http.StatusConflict, "Conflict", "application already decided")
	case errors.Is(err, ErrSchoolNotAccepting):
		httpx.Problem(w, http.StatusConflict, "Conflict", "school is not accepting applications")
	default:
		h.logger.Error("admissions handler", slog.Any("error", err))
		httpx.RespondError(w, rbac.BoundaryError(err))
	}
}
