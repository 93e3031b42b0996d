package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"warehouse_inventory_backend/internal/middleware"
	"warehouse_inventory_backend/internal/services"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

var kindStatus = map[string]int{
	utils.ErrCodeValidationFailed:       http.StatusBadRequest,
	utils.ErrCodeUnauthorized:           http.StatusUnauthorized,
	utils.ErrCodeForbidden:              http.StatusForbidden,
	utils.ErrCodeNotFound:               http.StatusNotFound,
	utils.ErrCodeConflict:               http.StatusConflict,
	utils.ErrCodeInsufficientStock:      http.StatusUnprocessableEntity,
	utils.ErrCodeInvariantViolation:     http.StatusUnprocessableEntity,
	utils.ErrCodeInvalidStateTransition: http.StatusConflict,
}

// respondServiceError maps a service error to its status and error code.
// Internal errors are logged with their cause and answered without it.
func respondServiceError(c *gin.Context, op string, err error) {
	code := services.Kind(err)
	status, ok := kindStatus[code]
	if !ok {
		utils.LogError(err, op+": internal error")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError,
			"Failed to process request.", "Internal error"))
		return
	}
	utils.LogDebug(op+": request rejected", map[string]interface{}{"code": code, "error": err.Error()})
	utils.RespondWithError(c, utils.NewAPIError(status, code, http.StatusText(status), err.Error()))
}

// bindJSON decodes the request body, answering 400 on failure.
func bindJSON(c *gin.Context, op string, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.LogWarn(err, op+": Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
			"Invalid request payload: "+err.Error(), err.Error()))
		return false
	}
	return true
}

// actorFrom builds the acting principal from what AuthMiddleware stored.
func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		UserID:    c.GetString(middleware.ContextUserID),
		SessionID: c.GetString(middleware.ContextSessionID),
		IPAddress: c.ClientIP(),
	}
}

// queryInt reads an integer query parameter, answering 400 when it is malformed.
func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	v, err := utils.StrToIntDefault(c.Query(name), fallback)
	if err != nil {
		utils.RespondValidationFailed(c, "query parameter '"+name+"' must be an integer")
		return 0, false
	}
	return v, true
}

// queryBool reads a boolean query parameter.
func queryBool(c *gin.Context, name string, fallback bool) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		utils.RespondValidationFailed(c, "query parameter '"+name+"' must be a boolean")
		return false, false
	}
	return v, true
}

// queryTimeRange reads ?from=&to=. A date-only 'to' covers that whole day.
func queryTimeRange(c *gin.Context) (from, to *time.Time, ok bool) {
	var err error
	if from, err = utils.StrToOptionalTime(c.Query("from")); err != nil {
		utils.RespondValidationFailed(c, "from: "+err.Error())
		return nil, nil, false
	}
	if to, err = utils.StrToOptionalTime(c.Query("to")); err != nil {
		utils.RespondValidationFailed(c, "to: "+err.Error())
		return nil, nil, false
	}
	if to != nil && len(strings.TrimSpace(c.Query("to"))) == len(time.DateOnly) {
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &end
	}
	return from, to, true
}
