package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlgate/internal/domain"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func authedHandler(t *testing.T) (http.Handler, *domain.Principal) {
	t.Helper()
	validator, err := NewHS256Validator(testSecret)
	require.NoError(t, err)

	var captured domain.Principal
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := domain.PrincipalFromContext(r.Context())
		require.True(t, ok)
		captured = p
		w.WriteHeader(http.StatusOK)
	})
	return Auth(validator)(inner), &captured
}

func TestAuth_ValidToken(t *testing.T) {
	handler, principal := authedHandler(t)

	token := signToken(t, jwt.MapClaims{
		"sub":  "alice",
		"role": domain.RoleAnalyst,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/queries", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.RemoteAddr = "10.1.2.3:54321"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", principal.Username)
	assert.Equal(t, domain.RoleAnalyst, principal.Role)
	assert.Equal(t, "10.1.2.3", principal.ClientIP)
}

func TestAuth_Rejections(t *testing.T) {
	handler, _ := authedHandler(t)

	cases := map[string]string{
		"no header":     "",
		"not bearer":    "Basic abc",
		"garbage token": "Bearer not.a.jwt",
		"wrong secret": "Bearer " + func() string {
			tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "a", "role": "admin"})
			s, _ := tok.SignedString([]byte("other-secret"))
			return s
		}(),
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/approvals", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	handler, _ := authedHandler(t)

	token := signToken(t, jwt.MapClaims{
		"sub":  "alice",
		"role": domain.RoleAnalyst,
		"exp":  time.Now().Add(-time.Minute).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/v1/audit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHS256Validator_MissingClaims(t *testing.T) {
	validator, err := NewHS256Validator(testSecret)
	require.NoError(t, err)

	noRole := signToken(t, jwt.MapClaims{"sub": "alice"})
	_, err = validator.Validate(context.Background(), noRole)
	assert.Error(t, err)

	noSub := signToken(t, jwt.MapClaims{"role": "analyst"})
	_, err = validator.Validate(context.Background(), noSub)
	assert.Error(t, err)
}

func TestNewHS256Validator_EmptySecret(t *testing.T) {
	_, err := NewHS256Validator("")
	assert.Error(t, err)
}
