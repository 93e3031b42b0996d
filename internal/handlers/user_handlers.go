package handlers

import (
	"net/http"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// UserHandler serves user administration and the role list.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us *services.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

// CreateUser registers an account.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if !bindJSON(c, "CreateUser", &req) {
		return
	}
	user, err := h.userService.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondServiceError(c, "CreateUser", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GetUsers lists accounts by ?page=&page_size=.
func (h *UserHandler) GetUsers(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := queryInt(c, "page_size", models.DefaultPageSize)
	if !ok {
		return
	}
	result, err := h.userService.List(c.Request.Context(), actorFrom(c), page, pageSize)
	if err != nil {
		respondServiceError(c, "GetUsers", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetUserByID fetches one account.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, "GetUserByID", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser changes profile, role, location or active flag.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req services.UpdateUserRequest
	if !bindJSON(c, "UpdateUser", &req) {
		return
	}
	user, err := h.userService.Update(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, "UpdateUser", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser deactivates an account.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondServiceError(c, "DeleteUser", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetRoles lists every role with its capabilities.
func (h *UserHandler) GetRoles(c *gin.Context) {
	roles, err := h.userService.ListRoles(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondServiceError(c, "GetRoles", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": roles})
}
