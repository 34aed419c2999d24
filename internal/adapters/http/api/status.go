package api

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
)

// statusPage is the data rendered by templates/status.html.
type statusPage struct {
	Controllers   int
	Displays      int
	ServerTime    string
	ControllerIDs []string
	DisplayIDs    []string
}

// StatusHandler renders the human readable landing page.
type StatusHandler struct {
	registry Registry
	now      func() time.Time
	tmpl     *template.Template
}

// NewStatusHandler creates a new status page handler.
func NewStatusHandler(registry Registry, now func() time.Time) *StatusHandler {
	return &StatusHandler{
		registry: registry,
		now:      now,
		tmpl:     statusTemplate,
	}
}

// HandleStatus handles GET / requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := statusPage{
		ControllerIDs: ids(h.registry.Snapshot(ctx, model.RoleController)),
		DisplayIDs:    ids(h.registry.Snapshot(ctx, model.RoleDisplay)),
		ServerTime:    types.Timestamp(h.now()),
	}
	page.Controllers = len(page.ControllerIDs)
	page.Displays = len(page.DisplayIDs)

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, page); err != nil {
		writeError(w, http.StatusInternalServerError, "render", fmt.Errorf("%w: %w", ErrRender, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func ids(conns []model.Connection) []string {
	out := make([]string, len(conns))
	for i := range conns {
		out[i] = conns[i].ID
	}
	return out
}
