package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/huangang/mealkiosk/internal/utils"
	"github.com/huangang/mealkiosk/pkg/response"
)

const (
	ContextAdminID  = "admin_id"
	ContextUsername = "username"
)

// SessionSource reports the admin session stored on this kiosk.
type SessionSource interface {
	CurrentSession(ctx context.Context) (*services.AdminSession, error)
}

// AuthRequired accepts a Bearer token (or ?token= for EventSource clients).
// With a non-nil sessions source the token must also belong to the admin
// currently signed in on this kiosk, so a logout invalidates it.
func AuthRequired(sessions SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abort(c, response.NewUnauthorized("authorization header required"))
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			abort(c, response.NewUnauthorized("invalid or expired token"))
			return
		}

		if sessions != nil {
			session, err := sessions.CurrentSession(c.Request.Context())
			if err != nil {
				abort(c, response.NewServerError("session store unavailable"))
				return
			}
			if session == nil || session.ID != claims.AdminID {
				abort(c, response.NewUnauthorized("session expired, please log in again"))
				return
			}
		}

		c.Set(ContextAdminID, claims.AdminID)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			return token, true
		}
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abort(c *gin.Context, err *response.AppError) {
	response.Error(c, err)
	c.Abort()
}

// GetAdminID returns the authenticated admin, or 0.
func GetAdminID(c *gin.Context) uint {
	if id, exists := c.Get(ContextAdminID); exists {
		if v, ok := id.(uint); ok {
			return v
		}
	}
	return 0
}

func GetUsername(c *gin.Context) string {
	return c.GetString(ContextUsername)
}
