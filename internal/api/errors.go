package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusnest/forum/internal/auth"
	"github.com/campusnest/forum/internal/forum"
	"github.com/campusnest/forum/pkg/logging"
)

// Error represents an API error
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// toError maps an engine error onto a status code. Store failures get a
// generic message; their detail only goes to the log.
func toError(err error) *Error {
	var apiErr *Error
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &verrs):
		return NewError(http.StatusBadRequest, describeValidation(verrs))
	case errors.Is(err, forum.ErrValidation):
		return NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, forum.ErrNotFound):
		return NewError(http.StatusNotFound, "not found")
	case errors.Is(err, forum.ErrForbidden):
		return NewError(http.StatusForbidden, "forbidden")
	case errors.Is(err, forum.ErrUnauthenticated), errors.Is(err, auth.ErrUpstreamAuth):
		return NewError(http.StatusUnauthorized, "authentication required")
	default:
		return NewError(http.StatusInternalServerError, "internal error")
	}
}

func describeValidation(verrs validator.ValidationErrors) string {
	if len(verrs) == 0 {
		return forum.ErrValidation.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: %s is required", forum.ErrValidation, fe.Field())
	case "max":
		return fmt.Sprintf("%s: %s must be at most %s characters", forum.ErrValidation, fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s: %s failed %s", forum.ErrValidation, fe.Field(), fe.Tag())
	}
}

// abort writes err as the response and stops the handler chain.
func abort(c *gin.Context, logger *zap.Logger, err error) {
	apiErr := toError(err)
	log := logging.FromContext(c.Request.Context(), logger)
	if apiErr.Code >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		log.Debug("Request rejected", zap.String("path", c.FullPath()), zap.Int("status", apiErr.Code), zap.Error(err))
	}
	c.AbortWithStatusJSON(apiErr.Code, apiErr)
}
