package handler

import (
	"net/http"

	"identity/internal/delivery/http/response"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports liveness. It does not touch the account store.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]bool{"ok": true}, "OK")
}
