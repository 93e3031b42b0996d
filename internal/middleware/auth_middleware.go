package middleware

import (
	"net/http"
	"strings"

	"warehouse_inventory_backend/internal/services"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AccessTokenCookie is the cookie checked when no Authorization header is sent.
const AccessTokenCookie = "access_token"

// RefreshTokenCookie is scoped to the auth routes.
const RefreshTokenCookie = "refresh_token"

// Context keys set for downstream handlers.
const (
	ContextUserID    = "userID"
	ContextSessionID = "sessionID"
	ContextUserRole  = "userRole"
)

// AuthMiddleware creates a Gin middleware that resolves the access token to a
// live session. Revoked or expired sessions and deactivated users are rejected.
func AuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
				"Authorization required.", "Send 'Authorization: Bearer <token>' or the access_token cookie"))
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			utils.LogWarn(err, "AuthMiddleware: token rejected", map[string]interface{}{"client_ip": c.ClientIP()})
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
				"Invalid or expired session.", err.Error()))
			return
		}

		c.Set(ContextUserID, principal.User.ID)
		c.Set(ContextSessionID, principal.Session.ID)
		c.Set(ContextUserRole, string(principal.User.Role))

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}
