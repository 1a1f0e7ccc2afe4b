package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carva/internal/auth"
	"carva/internal/middleware"
	"carva/internal/repository"
	"carva/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

var errInvalidRequestID = errors.New("invalid request id")

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, service.ErrWorkshopNotFound),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrCarNotFound),
		errors.Is(err, service.ErrNotificationNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, errInvalidRequestID),
		errors.Is(err, service.ErrInvalidBillItem),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidOTP):
		return http.StatusBadRequest

	// Authentication errors
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized

	// Forbidden actor
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	// Payment
	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusPaymentRequired

	// Conflict errors
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrRequestClosed),
		errors.Is(err, service.ErrActiveRequestExists),
		errors.Is(err, service.ErrRequestTaken),
		errors.Is(err, service.ErrDriverBusy),
		errors.Is(err, service.ErrAlreadyRejected),
		errors.Is(err, service.ErrBillFinalized),
		errors.Is(err, service.ErrBillNotFinalized),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrPlateRegistered):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// actor returns the authenticated caller.
func actor(c *gin.Context) (service.Actor, bool) {
	username, role, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authorization required"})
		return service.Actor{}, false
	}
	return service.Actor{Username: username, Role: role}, true
}

// int64Param parses a positive numeric path parameter.
func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: errInvalidRequestID.Error()})
		return 0, false
	}
	return id, true
}
