package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/auth"
	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

const (
	secret = "front-desk-secret"
	issuer = "hotel-pms"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims auth.Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func claims(sub, role, iss string, ttl time.Duration) auth.Claims {
	return auth.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    iss,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
}

func TestVerify(t *testing.T) {
	v := auth.NewVerifier(secret, issuer)

	id, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte(secret), claims("12", "Receptionist", issuer, time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, shared.Identity{UserID: 12, Role: "receptionist"}, id)

	rejected := map[string]string{
		"expired":        sign(t, jwt.SigningMethodHS256, []byte(secret), claims("12", "admin", issuer, -time.Hour)),
		"foreign issuer": sign(t, jwt.SigningMethodHS256, []byte(secret), claims("12", "admin", "someone-else", time.Hour)),
		"wrong secret":   sign(t, jwt.SigningMethodHS256, []byte("other"), claims("12", "admin", issuer, time.Hour)),
		"other method":   sign(t, jwt.SigningMethodHS512, []byte(secret), claims("12", "admin", issuer, time.Hour)),
		"bad subject":    sign(t, jwt.SigningMethodHS256, []byte(secret), claims("ana", "admin", issuer, time.Hour)),
		"no role":        sign(t, jwt.SigningMethodHS256, []byte(secret), claims("12", "", issuer, time.Hour)),
		"garbage":        "not.a.token",
	}
	for name, raw := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(raw)
			require.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}

	noExp := claims("12", "admin", issuer, time.Hour)
	noExp.ExpiresAt = nil
	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, []byte(secret), noExp))
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.Middleware{Verifier: auth.NewVerifier(secret, issuer)}.Authenticate)
	auth.NewHandler(rbac.NewService()).MountRoutes(r)
	return r
}

func TestMiddlewareInjectsIdentity(t *testing.T) {
	router := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(secret), claims("5", "housekeeping", issuer, time.Hour)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		UserID      int64    `json:"user_id"`
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(5), body.UserID)
	assert.ElementsMatch(t, []string{shared.PermInventoryView, shared.PermRoomsView}, body.Permissions)
}

func TestMiddlewareRejects(t *testing.T) {
	router := newRouter()
	headers := []string{
		"",
		"Basic dXNlcjpwYXNz",
		"Bearer ",
		"Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), claims("5", "admin", issuer, -time.Minute)),
	}
	for _, h := range headers {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if h != "" {
			req.Header.Set("Authorization", h)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, h)
	}
}
