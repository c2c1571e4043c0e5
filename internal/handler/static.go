package handler

import (
	"os"

	"github.com/labstack/echo/v4"

	"relay-proxy-go/internal/config"
)

// StaticHandler serves files from the configured static directory.
// Directories are answered with their index.html.
type StaticHandler struct {
	serve echo.HandlerFunc
}

// NewStaticHandler creates a StaticHandler rooted at cfg.Server.StaticDir.
func NewStaticHandler(cfg *config.Config) *StaticHandler {
	return &StaticHandler{
		serve: echo.StaticDirectoryHandler(os.DirFS(cfg.Server.StaticDir), false),
	}
}

// Handle serves the file named by the wildcard route parameter.
func (h *StaticHandler) Handle(c echo.Context) error {
	return h.serve(c)
}
