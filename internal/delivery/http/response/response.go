// Package response renders the unified JSON envelope for successful API calls.
// Failures are rendered by the HTTP error handler from domain errors.
package response

import (
	"github.com/labstack/echo/v4"
)

// Response unified API response structure
type Response struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`    // HTTP status code
	Message string `json:"message"` // User-friendly message
	Data    any    `json:"data,omitempty"`
}

// AccountView is the public projection of an account. It never carries the credential hash.
type AccountView struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}

// Success successful response
func Success(c echo.Context, statusCode int, data any, message string) error {
	if message == "" {
		message = "Success"
	}

	return c.JSON(statusCode, Response{
		Success: true,
		Code:    statusCode,
		Message: message,
		Data:    data,
	})
}
