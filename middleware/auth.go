package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/keshav-const/BTP-sub000/common/auth"
	apperrors "github.com/keshav-const/BTP-sub000/common/errors"
)

const (
	UserContextKey = "userID"
	RoleContextKey = "role"

	RoleAdmin = "admin"
)

// AuthMiddleware accepts a Bearer token when a verifier is configured. The
// X-User-ID and X-User-Role headers forwarded by the API gateway are only
// honoured when trustHeaders is set; otherwise a request without a valid
// token is rejected.
func AuthMiddleware(verifier *auth.TokenVerifier, trustHeaders bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") && verifier.Enabled() {
			claims, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				apperrors.Respond(c, apperrors.ErrUnauthorized.WithDetail("reason", err.Error()))
				return
			}
			c.Set(UserContextKey, claims.UserID)
			c.Set(RoleContextKey, claims.Role)
			c.Next()
			return
		}

		if !trustHeaders {
			apperrors.Respond(c, apperrors.ErrUnauthorized.WithDetail("reason", "bearer token required"))
			return
		}

		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			apperrors.Respond(c, apperrors.ErrUnauthorized)
			return
		}
		role := c.GetHeader("X-User-Role")
		if role == "" {
			role = "user"
		}
		c.Set(UserContextKey, userID)
		c.Set(RoleContextKey, role)
		c.Next()
	}
}

// AdminOnly rejects callers without the admin role.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleContextKey) != RoleAdmin {
			apperrors.Respond(c, apperrors.ErrAccessDenied.WithDetail("reason", "admin access required"))
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) (string, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("user ID not found in context")
}
