package handler

import (
	"github.com/labstack/echo/v4"

	"relay-proxy-go/internal/config"
	"relay-proxy-go/internal/service"
)

// Dispatcher sends every request that is not an operational endpoint to
// the preflight, proxy or static responder.
type Dispatcher struct {
	router *service.Router
	proxy  *ProxyHandler
	static *StaticHandler
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(r *service.Router, proxy *ProxyHandler, static *StaticHandler) *Dispatcher {
	return &Dispatcher{router: r, proxy: proxy, static: static}
}

// Handle routes the request according to its method and path.
func (d *Dispatcher) Handle(c echo.Context) error {
	req := c.Request()

	switch d.router.Classify(req.Method, req.URL.Path) {
	case service.RoutePreflight:
		return Preflight(c)
	case service.RouteProxy:
		return d.proxy.Handle(c)
	case service.RouteStatic:
		return d.static.Handle(c)
	case service.RouteNotFound:
		return echo.ErrNotFound
	default:
		return echo.ErrMethodNotAllowed
	}
}

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, d *Dispatcher, health *HealthHandler) {
	e.GET(config.HealthzPath, health.Healthz)
	e.GET(config.StatusPath, health.Status)

	e.Any("/", d.Handle)
	e.Any("/*", d.Handle)
}
