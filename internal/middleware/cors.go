package middleware

import (
	"github.com/labstack/echo/v4"

	"relay-proxy-go/internal/service"
)

// CORS returns an Echo middleware that marks every response, including
// static files and locally generated errors, as readable from any origin.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			service.ApplyCORS(c.Response().Header())
			return next(c)
		}
	}
}
