package service

import (
	"net/http"
	"strings"

	"relay-proxy-go/internal/config"
)

// Route is the classification of an inbound request.
type Route int

const (
	RouteStatic Route = iota
	RouteProxy
	RoutePreflight
	RouteNotFound
	RouteMethodNotAllowed
)

func (r Route) String() string {
	switch r {
	case RouteStatic:
		return "static"
	case RouteProxy:
		return "proxy"
	case RoutePreflight:
		return "preflight"
	case RouteNotFound:
		return "not_found"
	case RouteMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "unknown"
	}
}

// Router decides where an inbound request goes and maps proxied
// request URIs onto the backend.
type Router struct {
	base   string
	prefix string
}

// NewRouter creates a Router for the given backend base URL.
// A trailing slash on the base is dropped so that joining never yields "//".
func NewRouter(cfg *config.Config) *Router {
	return &Router{
		base:   strings.TrimSuffix(cfg.Upstream.BaseURL, "/"),
		prefix: config.APIPrefix,
	}
}

// IsProxied reports whether path is the API prefix itself or lies under it.
func (r *Router) IsProxied(path string) bool {
	return path == r.prefix || strings.HasPrefix(path, r.prefix+"/")
}

// Classify returns the route for method and path. OPTIONS is always a
// preflight, only GET and POST are proxied, and only GET reaches static files.
func (r *Router) Classify(method, path string) Route {
	if method == http.MethodOptions {
		return RoutePreflight
	}

	switch method {
	case http.MethodGet:
		if r.IsProxied(path) {
			return RouteProxy
		}
		return RouteStatic
	case http.MethodPost:
		if r.IsProxied(path) {
			return RouteProxy
		}
		return RouteNotFound
	default:
		return RouteMethodNotAllowed
	}
}

// BackendURL returns the backend base concatenated with uri minus the API
// prefix. The query string is part of uri and is carried over untouched;
// uri equal to the bare prefix yields the bare base.
func (r *Router) BackendURL(uri string) string {
	return r.base + strings.TrimPrefix(uri, r.prefix)
}

// Base returns the configured backend base URL.
func (r *Router) Base() string {
	return r.base
}
