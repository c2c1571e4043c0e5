package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"

	"relay-proxy-go/internal/client"
	"relay-proxy-go/internal/config"
	"relay-proxy-go/internal/middleware"
	"relay-proxy-go/internal/service"
)

// testConfig returns a config pointing at backendURL and serving staticDir.
func testConfig(backendURL, staticDir string) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{StaticDir: staticDir},
		Upstream: config.UpstreamConfig{BaseURL: backendURL, TimeoutSeconds: 10},
		Proxy:    config.ProxyConfig{ChunkSize: 1024},
	}
}

// newTestEcho wires the full routing stack the way main does, minus the
// server-level middleware that does not affect routing.
func newTestEcho(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	bc := client.NewBackendClient(cfg, logger, nil)
	router := service.NewRouter(cfg)
	svc := service.NewProxyService(bc, router, logger)
	proxy := NewProxyHandler(svc, cfg, logger, nil)
	d := NewDispatcher(router, proxy, NewStaticHandler(cfg))

	e := echo.New()
	e.Use(middleware.CORS())
	RegisterRoutes(e, d, NewHealthHandler(cfg, "test"))
	return e
}

// countingBackend wraps h and counts how many requests reached it.
func countingBackend(h http.HandlerFunc) (*httptest.Server, *atomic.Int64) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	return srv, &hits
}

// staticDir creates a temp dir holding index.html and app.js.
func staticDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.html": "<html>home</html>",
		"app.js":     "console.log('app')",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
