package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/huangang/mealkiosk/pkg/logger"
	"github.com/huangang/mealkiosk/pkg/response"
)

// respondError maps service errors onto the response envelope. Unknown errors
// are logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		response.Error(c, response.NewBadRequest(err.Error()))
	case errors.Is(err, services.ErrOutsideWindow):
		response.Error(c, response.NewOutsideWindow("registration is closed for this meal"))
	case errors.Is(err, services.ErrDuplicateMeal):
		response.Error(c, response.NewDuplicateMeal("already registered for this meal today"))
	case errors.Is(err, services.ErrNotFound):
		response.Error(c, response.NewNotFound(err.Error()))
	case errors.Is(err, services.ErrConflict):
		response.Error(c, response.NewConflict(err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Error(c, response.NewUnauthorized("invalid username or password"))
	case errors.Is(err, services.ErrAccountDisabled):
		response.Error(c, response.NewForbidden("account disabled"))
	case errors.Is(err, services.ErrIncorrectPassword):
		response.Error(c, response.NewBadRequest("current password is incorrect"))
	default:
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		response.Error(c, response.NewServerError("internal server error"))
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}
