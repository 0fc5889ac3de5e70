package admins

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

// Handler manages school admin endpoints.
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

// MountRoutes registers admin management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireCapability(rbac.CapAdmins))
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.show)
		r.Put("/{id}/grant", h.updateGrant)
		r.Post("/{id}/deactivate", h.mutate(h.service.Deactivate))
		r.Post("/{id}/reactivate", h.mutate(h.service.Reactivate))
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p := rbac.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	paging := shared.NewPagination(page, perPage, 0)

	admins, total, err := h.service.ListAdmins(r.Context(), p, paging.PerPage, paging.Offset())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"admins":     admins,
		"pagination": shared.NewPagination(paging.Page, paging.PerPage, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	admin, err := h.service.GetAdmin(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, admin)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.FieldErrors(w, fields)
		return
	}
	admin, err := h.service.Create(r.Context(), rbac.PrincipalFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, admin)
}

type grantRequest struct {
	Capabilities []string `json:"capabilities" validate:"required,min=1"`
}

func (h *Handler) updateGrant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.FieldErrors(w, fields)
		return
	}
	admin, err := h.service.UpdateGrant(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.Capabilities)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, admin)
}

func (h *Handler) mutate(apply func(ctx context.Context, actor *rbac.Principal, userID int64) (*Admin, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		admin, err := apply(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, admin)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrAlreadyExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "an account with this email already exists")
	case errors.Is(err, ErrPrimaryImmutable), errors.Is(err, ErrSelfTarget):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrUnknownCapability):
		httpx.FieldErrors(w, map[string]string{"capabilities": "unknown capability"})
	default:
		h.logger.Error("admins handler", slog.Any("error", err))
		httpx.RespondError(w, rbac.BoundaryError(err))
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
