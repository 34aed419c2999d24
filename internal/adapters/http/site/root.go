// Package site serves the browser clients (controller and display pages)
// from a directory on disk.
package site

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

// Error constants.
var (
	ErrNotDirectory = errors.New("static path is not a directory")
)

// Register mounts dir at the root of mux, below any more specific route. An
// empty dir registers nothing.
func Register(ctx context.Context, mux *http.ServeMux, dir string) error {
	if mux == nil {
		panic("mux is nil")
	}
	if dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("static dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	mux.Handle("GET /", NewRootHandler(dir))
	logger.Get().Named("site").Info(ctx, "serving static assets", logger.String("dir", dir))
	return nil
}

// RootHandler serves files below a directory. Directory listings are refused.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a new root handler for dir.
func NewRootHandler(dir string) *RootHandler {
	return &RootHandler{files: http.FileServerFS(noListing{os.DirFS(dir)})}
}

// ServeHTTP handles GET requests for static assets.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.files.ServeHTTP(w, r)
}
