package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	cfgpkg "github.com/fanrealms/billing/pkg/config"
	"github.com/fanrealms/billing/pkg/response"
)

const bearerPrefix = "Bearer "

// AuthMiddleware verifies the Authorization bearer token before any protected
// action executes. The token is an HMAC-signed JWT whose subject is the caller's
// user id; it is stored in gin.Context (key "user_id") and the request context.
func AuthMiddleware(cfg *cfgpkg.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			abortUnauthorized(c)
			return
		}

		claims := &jwt.StandardClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, bearerPrefix), claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.Auth.JWTSecret), nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			abortUnauthorized(c)
			return
		}

		c.Set("user_id", claims.Subject)
		ctx := context.WithValue(c.Request.Context(), "user_id", claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		response.ErrorT[any](response.APIResponseCodeUnauthorized, "authentication required"))
}

// CallerID returns the authenticated user id set by AuthMiddleware.
func CallerID(c *gin.Context) string {
	return c.GetString("user_id")
}
