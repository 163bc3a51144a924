package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hotel-pms/hotel-pms/internal/platform/httpx"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// Middleware authenticates requests with a bearer token.
type Middleware struct {
	Verifier *Verifier
	Logger   *slog.Logger
}

// Authenticate rejects requests without a valid token and stores the
// identity in the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		id, err := m.Verifier.Verify(raw)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Info("token rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
			}
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Handler exposes the caller's identity.
type Handler struct {
	rbac *rbac.Service
}

// NewHandler constructs a Handler instance.
func NewHandler(rbacService *rbac.Service) *Handler {
	return &Handler{rbac: rbacService}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":     id.UserID,
		"role":        id.Role,
		"permissions": h.rbac.EffectivePermissions(r.Context(), id.Role),
	})
}
