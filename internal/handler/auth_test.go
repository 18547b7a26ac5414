package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tapeo-pos/server/internal/auth"
	"github.com/tapeo-pos/server/internal/config"
)

func newAuthRouter(t *testing.T) chi.Router {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	svc := auth.NewService(config.AuthConfig{
		JWTSecret:         "test-secret",
		AdminUser:         "admin",
		AdminPasswordHash: string(hash),
		APIKey:            "machine-key",
	}, false)

	router := chi.NewRouter()
	NewAuthHandler(svc).RegisterRoutes(router)
	return router
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		wantCookie     bool
	}{
		{
			name:           "success",
			body:           `{"username": "admin", "password": "secret"}`,
			expectedStatus: http.StatusOK,
			wantCookie:     true,
		},
		{
			name:           "wrong_password",
			body:           `{"username": "admin", "password": "nope"}`,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unknown_user",
			body:           `{"username": "root", "password": "secret"}`,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing_fields",
			body:           `{"username": "admin"}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthRouter(t)

			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)

			cookie := sessionCookie(rec.Result().Cookies())
			if tt.wantCookie {
				require.NotNil(t, cookie)
				assert.NotEmpty(t, cookie.Value)
				assert.True(t, cookie.HttpOnly)
			} else {
				assert.Nil(t, cookie)
			}
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	router := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	cookie := sessionCookie(rec.Result().Cookies())
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func sessionCookie(cookies []*http.Cookie) *http.Cookie {
	for _, c := range cookies {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}
