package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/classpoint/classpoint/internal/platform/httpx"
)

// Middleware wires the gate into chi handler chains.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

// Require gates the wrapped handlers with the given requirement. On success
// the resolved principal is placed in the request context; on failure the
// typed reason is collapsed at the boundary before responding.
func (m Middleware) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := m.Gate.Check(r.Context(), req)
			if err != nil {
				m.reject(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRoles is shorthand for capability-agnostic role gating.
func (m Middleware) RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	return m.Require(Requirement{Roles: roles})
}

// RequireCapability gates school admins on one capability and also admits the
// listed extra roles on their role check alone.
func (m Middleware) RequireCapability(capability Capability, extraRoles ...Role) func(http.Handler) http.Handler {
	roles := append([]Role{RoleSchoolAdmin}, extraRoles...)
	return m.Require(Requirement{Roles: roles, Capability: &capability, RequireTenant: true})
}

func (m Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	boundary := BoundaryError(err)
	if m.Logger != nil && !errors.Is(err, ErrUnauthenticated) {
		m.Logger.Warn("request rejected",
			slog.String("path", r.URL.Path),
			slog.Any("reason", err))
	}
	httpx.RespondError(w, boundary)
}
