package messaging

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

var tenantRoles = []rbac.Role{rbac.RoleSchoolAdmin, rbac.RoleTeacher, rbac.RoleStudent, rbac.RoleGuardian}

// Handler manages messaging endpoints.
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

// MountRoutes registers direct message routes. Every tenant role may
// message; admins additionally need the capability, which Require expresses
// through the capability field (non-admin roles pass on the role alone).
func (h *Handler) MountRoutes(r chi.Router) {
	capability := rbac.CapMessaging
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(rbac.Requirement{Roles: tenantRoles, Capability: &capability, RequireTenant: true}))
		r.Get("/", h.inbox)
		r.Get("/sent", h.sent)
		r.Post("/", h.send)
		r.Get("/{id}", h.read)
	})
}

// MountAnnouncementRoutes registers announcement routes.
func (h *Handler) MountAnnouncementRoutes(r chi.Router) {
	capability := rbac.CapAnnouncements
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(rbac.Requirement{Roles: tenantRoles, Capability: &capability, RequireTenant: true}))
		r.Get("/", h.announcements)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireCapability(rbac.CapAnnouncements))
		r.Post("/", h.announce)
		r.Delete("/{id}", h.deleteAnnouncement)
	})
}

func (h *Handler) inbox(w http.ResponseWriter, r *http.Request) {
	h.listMessages(w, r, h.service.Inbox, "messages")
}

func (h *Handler) sent(w http.ResponseWriter, r *http.Request) {
	h.listMessages(w, r, h.service.Sent, "messages")
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, actor *rbac.Principal, limit, offset int) ([]Message, int, error), key string) {
	p := rbac.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	paging := shared.NewPagination(page, perPage, 0)

	messages, total, err := list(r.Context(), p, paging.PerPage, paging.Offset())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		key:          messages,
		"pagination": shared.NewPagination(paging.Page, paging.PerPage, total),
	})
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if !h.decode(w, r, &req) {
		return
	}
	message, err := h.service.Send(r.Context(), rbac.PrincipalFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, message)
}

func (h *Handler) read(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	message, err := h.service.Read(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, message)
}

func (h *Handler) announcements(w http.ResponseWriter, r *http.Request) {
	p := rbac.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	paging := shared.NewPagination(page, perPage, 0)

	announcements, total, err := h.service.Announcements(r.Context(), p, paging.PerPage, paging.Offset())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"announcements": announcements,
		"pagination":    shared.NewPagination(paging.Page, paging.PerPage, total),
	})
}

func (h *Handler) announce(w http.ResponseWriter, r *http.Request) {
	var req AnnouncementRequest
	if !h.decode(w, r, &req) {
		return
	}
	announcement, err := h.service.Announce(r.Context(), rbac.PrincipalFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, announcement)
}

func (h *Handler) deleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.DeleteAnnouncement(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
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
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrRecipientUnknown):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidAudience):
		httpx.FieldErrors(w, map[string]string{"audience": "must be all, staff, students or guardians"})
	default:
		h.logger.Error("messaging handler", slog.Any("error", err))
		httpx.RespondError(w, rbac.BoundaryError(err))
	}
}
