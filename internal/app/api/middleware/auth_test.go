package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/fanrealms/billing/pkg/config"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.StandardClaims{Subject: subject})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &cfgpkg.Config{Auth: cfgpkg.AuthConfig{JWTSecret: testSecret}}
	r := gin.New()
	r.GET("/whoami", AuthMiddleware(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, CallerID(c))
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := authTestRouter()

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid token",
			authHeader: "Bearer " + signToken(t, testSecret, "user-7"),
			wantStatus: http.StatusOK,
			wantBody:   "user-7",
		},
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer token",
			authHeader: "Basic abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong signing key",
			authHeader: "Bearer " + signToken(t, "other-secret", "user-7"),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty subject",
			authHeader: "Bearer " + signToken(t, testSecret, ""),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}
