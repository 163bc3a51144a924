package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

func serve(t *testing.T, mw func(http.Handler) http.Handler, id *shared.Identity) int {
	t.Helper()
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", nil)
	if id != nil {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), *id))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestMiddlewareRequireAny(t *testing.T) {
	m := Middleware{Service: NewService()}
	mw := m.RequireAny(shared.PermExpensesCreate)

	require.Equal(t, http.StatusUnauthorized, serve(t, mw, nil))
	require.Equal(t, http.StatusForbidden, serve(t, mw, &shared.Identity{UserID: 3, Role: RoleReceptionist}))
	require.Equal(t, http.StatusNoContent, serve(t, mw, &shared.Identity{UserID: 1, Role: RoleManager}))
	require.Equal(t, http.StatusNoContent, serve(t, mw, &shared.Identity{UserID: 1, Role: "ADMIN"}))
}

func TestMiddlewareRequireAll(t *testing.T) {
	m := Middleware{Service: NewService()}
	mw := m.RequireAll(shared.PermPaymentsRecord, shared.PermPaymentsRefund)

	require.Equal(t, http.StatusForbidden, serve(t, mw, &shared.Identity{UserID: 3, Role: RoleReceptionist}))
	require.Equal(t, http.StatusNoContent, serve(t, mw, &shared.Identity{UserID: 2, Role: RoleManager}))
}

func TestServiceAuthorize(t *testing.T) {
	svc := NewService()
	ctx := shared.ContextWithIdentity(context.Background(), shared.Identity{UserID: 9, Role: RoleHousekeeping})

	require.NoError(t, svc.Authorize(ctx, shared.PermInventoryView))
	require.ErrorIs(t, svc.Authorize(ctx, shared.PermPurchasesCreate), shared.ErrForbidden)
	require.ErrorIs(t, svc.Authorize(context.Background(), shared.PermPurchasesCreate), shared.ErrUnauthenticated)
}

func TestEffectivePermissionsSorted(t *testing.T) {
	perms := NewService().EffectivePermissions(context.Background(), " Housekeeping ")
	require.Equal(t, []string{shared.PermInventoryView, shared.PermRoomsView}, perms)
	require.Empty(t, NewService().EffectivePermissions(context.Background(), "guest"))
}
