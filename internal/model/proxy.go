// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest represents a client request to be forwarded to the backend.
type ProxyRequest struct {
	Ctx           context.Context
	Method        string
	URI           string // path plus raw query, as received
	Header        http.Header
	Body          io.Reader
	ContentLength int64
}

// ProxyResponse represents the backend response to be streamed back.
// A backend error status (4xx/5xx) is still a ProxyResponse.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
