package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	usersvc "storefront/internal/service/user"
)

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "resource already exists"
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest, "cart is empty"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusBadRequest, "operation not allowed in current state"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, domain.ErrPaymentFailed):
		return http.StatusPaymentRequired, "payment failed"
	case errors.Is(err, usersvc.ErrInvalidOTP), errors.Is(err, usersvc.ErrInvalidToken):
		return http.StatusUnauthorized, "authentication failed"
	case errors.Is(err, usersvc.ErrNotVerified):
		return http.StatusForbidden, "account is not verified"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		detail = "unexpected error"
	}
	c.JSON(status, errorResponse{Message: msg, Error: detail})
}

func abortWithMessage(c *gin.Context, status int, msg, detail string) {
	c.AbortWithStatusJSON(status, errorResponse{Message: msg, Error: detail})
}

func badRequest(c *gin.Context, err error) {
	abortWithMessage(c, http.StatusBadRequest, "invalid request body", err.Error())
}
