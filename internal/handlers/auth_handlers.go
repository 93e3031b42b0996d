package handlers

import (
	"net/http"
	"time"

	"warehouse_inventory_backend/internal/middleware"
	"warehouse_inventory_backend/internal/services"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const refreshCookiePath = "/api/v1/auth"

// AuthHandler holds the authentication service.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// LoginUser handles user login. The token is returned in the body and as an HttpOnly cookie.
func (h *AuthHandler) LoginUser(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, "LoginUser", &req) {
		return
	}

	authResp, err := h.authService.Login(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		respondServiceError(c, "LoginUser", err)
		return
	}
	setTokenCookies(c, authResp)
	c.JSON(http.StatusOK, authResp)
}

func setTokenCookies(c *gin.Context, authResp *services.AuthResponse) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, authResp.AccessToken, int(time.Until(authResp.ExpiresAt).Seconds()), "/", "", false, true)
	c.SetCookie(middleware.RefreshTokenCookie, authResp.RefreshToken, int(time.Until(authResp.RefreshExpiresAt).Seconds()), refreshCookiePath, "", false, true)
}

// RefreshToken issues a new access token from a refresh token in the body or cookie.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req services.RefreshRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, "RefreshToken", &req) {
		return
	}
	if req.RefreshToken == "" {
		if cookie, err := c.Cookie(middleware.RefreshTokenCookie); err == nil {
			req.RefreshToken = cookie
		}
	}
	if req.RefreshToken == "" {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"Refresh token is missing.", "No refresh_token in body or cookie"))
		return
	}

	authResp, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken, c.ClientIP())
	if err != nil {
		respondServiceError(c, "RefreshToken", err)
		return
	}
	setTokenCookies(c, authResp)
	c.JSON(http.StatusOK, authResp)
}

// LogoutUser revokes the current session.
func (h *AuthHandler) LogoutUser(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), actorFrom(c)); err != nil {
		respondServiceError(c, "LogoutUser", err)
		return
	}
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", false, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, refreshCookiePath, "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully."})
}

// GetCurrentUser retrieves the profile of the currently authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.CurrentUser(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondServiceError(c, "GetCurrentUser", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
