package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hotel-pms/hotel-pms/internal/platform/httpx"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Middleware guards routes by permission. It expects auth.Middleware to have
// placed an identity in the request context.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAny lets the request through when the role holds one of perms.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	required := requiredList(perms)
	return m.guard(required, func(granted permSet) []string {
		if granted.hasAny(required) {
			return nil
		}
		return required
	})
}

// RequireAll lets the request through only when the role holds every one of perms.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	required := requiredList(perms)
	return m.guard(required, func(granted permSet) []string {
		return granted.missing(required)
	})
}

// guard runs deny, which reports the permissions that block the request.
func (m Middleware) guard(required []string, deny func(permSet) []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(required) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			blocked := deny(m.Service.grantsFor(id.Role))
			if len(blocked) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("rbac denied",
					slog.Int64("user_id", id.UserID),
					slog.String("role", id.Role),
					slog.Any("missing", blocked),
					slog.String("path", r.URL.Path),
				)
			}
			httpx.RespondError(w, shared.Forbidden(strings.Join(blocked, ",")))
		})
	}
}

func requiredList(perms []string) []string {
	set := newPermSet(perms)
	out := make([]string, 0, len(set))
	for _, p := range perms {
		p = normalize(p)
		if _, ok := set[p]; ok {
			out = append(out, p)
			delete(set, p)
		}
	}
	return out
}
