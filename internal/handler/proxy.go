package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"relay-proxy-go/internal/config"
	"relay-proxy-go/internal/metrics"
	"relay-proxy-go/internal/model"
	"relay-proxy-go/internal/relay"
	"relay-proxy-go/internal/service"
)

// ProxyHandler forwards API requests to the backend and streams the response back.
type ProxyHandler struct {
	service   *service.ProxyService
	logger    *slog.Logger
	metrics   *metrics.Metrics
	chunkSize int
}

// NewProxyHandler creates a ProxyHandler. The metrics parameter is optional.
func NewProxyHandler(svc *service.ProxyService, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *ProxyHandler {
	return &ProxyHandler{
		service:   svc,
		logger:    logger.With("component", "proxy_handler"),
		metrics:   m,
		chunkSize: cfg.Proxy.ChunkSize,
	}
}

// Handle proxies the request to the backend and relays the response,
// whatever its status, back to the client.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	pr := &model.ProxyRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		URI:           req.URL.RequestURI(),
		Header:        req.Header,
		Body:          req.Body,
		ContentLength: req.ContentLength,
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.transportFailure(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	header := c.Response().Header()
	service.ApplyCORS(header)
	for key, vals := range resp.Header {
		for _, v := range vals {
			header.Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)
	c.Response().Flush()

	n, err := relay.Copy(c.Response(), resp.Body, h.chunkSize)
	if h.metrics != nil {
		h.metrics.RelayedBytes.Add(float64(n))
	}
	if err == nil {
		return nil
	}

	// Headers are committed, so there is no clean way to report the failure.
	var readErr *relay.ReadError
	if errors.As(err, &readErr) {
		h.logger.Error("backend stream interrupted",
			"err", err,
			"uri", pr.URI,
			"bytes", n,
		)
		// Abort the client connection so the truncation is visible rather
		// than ending the chunked body cleanly.
		panic(http.ErrAbortHandler)
	}

	h.logger.Warn("client stream interrupted",
		"err", err,
		"uri", pr.URI,
		"bytes", n,
	)
	return nil
}

// transportFailure answers 500 when no backend response could be obtained.
func (h *ProxyHandler) transportFailure(c echo.Context, err error) error {
	reason := "other"
	var te *service.TransportError
	if errors.As(err, &te) {
		reason = te.Reason
	}

	h.logger.Error("proxy error",
		"err", err,
		"reason", reason,
		"uri", c.Request().URL.RequestURI(),
	)

	service.ApplyCORS(c.Response().Header())
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": "Proxy Error: " + err.Error(),
	})
}
