// Package service implements the core proxy forwarding logic.
package service

import (
	"io"
	"log/slog"
	"net/http"

	"relay-proxy-go/internal/client"
	"relay-proxy-go/internal/config"
	"relay-proxy-go/internal/model"
)

// TransportError is a failure to obtain any response from the backend:
// connection refused, DNS failure, timeout, cancellation and the like.
// A backend that answers with an error status does not produce one.
type TransportError struct {
	Reason string
	Err    error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// ProxyService handles the forwarding logic for proxy requests.
type ProxyService struct {
	client *client.BackendClient
	router *Router
	logger *slog.Logger
}

// NewProxyService creates a ProxyService.
func NewProxyService(c *client.BackendClient, r *Router, logger *slog.Logger) *ProxyService {
	return &ProxyService{
		client: c,
		router: r,
		logger: logger.With("component", "proxy_service"),
	}
}

// Forward sends a ProxyRequest to the backend and returns its response,
// whatever the status code. The caller is responsible for closing the
// response body. A body is sent only for POST with a positive declared
// length, and at most that many bytes are read from it.
//
// Every error returned is a *TransportError.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	target := s.router.BackendURL(pr.URI)

	var body io.Reader
	var length int64
	if pr.Method == http.MethodPost && pr.ContentLength > 0 && pr.Body != nil {
		body = io.LimitReader(pr.Body, pr.ContentLength)
		length = pr.ContentLength
	}

	header := FilterRequestHeaders(pr.Header)
	DefaultContentType(header, pr.Method, body != nil)

	s.logger.Debug("proxying request",
		"method", pr.Method,
		"uri", pr.URI,
		"target", target,
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, target, header, body, length)
	if err != nil {
		return nil, &TransportError{Reason: client.FailureReason(err), Err: err}
	}

	resp.Header = FilterResponseHeaders(resp.Header)
	return resp, nil
}
