package apperrors

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
)

// AppError is a business error carrying a machine code and an HTTP status.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return e.Message
}

// WithMessage returns a copy of the error with a more specific message.
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	return &AppError{Code: e.Code, Message: fmt.Sprintf(format, args...), Status: e.Status}
}

// New creates an AppError with an explicit code, message and HTTP status.
func New(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// Common error values. Handlers and services return these (or copies via
// WithMessage) and the Fiber error handler renders them as JSON bodies.
var (
	ErrValidation   = New("validation_error", "invalid request", fiber.StatusBadRequest)
	ErrUnauthorized = New("unauthorized", "missing or invalid token", fiber.StatusUnauthorized)
	ErrForbidden    = New("forbidden", "insufficient permissions", fiber.StatusForbidden)
	ErrNotFound     = New("not_found", "resource not found", fiber.StatusNotFound)
	ErrConflict     = New("conflict", "operation conflicts with current state", fiber.StatusConflict)
	ErrInvalidRef   = New("validation_error", "referenced entity is invalid", fiber.StatusBadRequest)
	ErrLocked       = New("locked", "account temporarily locked", fiber.StatusLocked)
	ErrRateLimited  = New("rate_limited", "too many requests", fiber.StatusTooManyRequests)
	ErrDelivery     = New("delivery_error", "message delivery failed", fiber.StatusInternalServerError)
	ErrInternal     = New("internal_error", "internal server error", fiber.StatusInternalServerError)
)

// ErrorHandler renders AppError values as {error, message} bodies and
// genericizes unexpected failures when production is set.
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return c.Status(appErr.Status).JSON(appErr)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code := "internal_error"
			switch fiberErr.Code {
			case fiber.StatusBadRequest:
				code = "validation_error"
			case fiber.StatusUnauthorized:
				code = "unauthorized"
			case fiber.StatusNotFound:
				code = "not_found"
			}
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error":   code,
				"message": fiberErr.Message,
			})
		}

		log.Printf("unhandled error on %s %s: %v", c.Method(), c.Path(), err)
		message := err.Error()
		if production {
			message = "internal server error"
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": message,
		})
	}
}

// Is reports whether err carries the same machine code as target.
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == target.Code && appErr.Status == target.Status
}
