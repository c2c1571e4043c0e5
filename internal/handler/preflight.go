package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"relay-proxy-go/internal/service"
)

// Preflight answers a CORS preflight request for any path without
// contacting the backend.
func Preflight(c echo.Context) error {
	service.ApplyPreflight(c.Response().Header())
	return c.NoContent(http.StatusOK)
}
