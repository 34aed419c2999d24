package api

import (
	"net/http"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/normalize"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
)

const noShake = "None"

// DebugController is one controller record in GET /debug. LastShake is the
// client timestamp of the last accepted shake, or "None".
type DebugController struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	ConnectedAt string `json:"connectedAt"`
	LastShake   any    `json:"lastShake"`
}

// DebugDisplay is one display record in GET /debug.
type DebugDisplay struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	ConnectedAt string `json:"connectedAt"`
}

// DebugTotals holds the role partition sizes.
type DebugTotals struct {
	Controllers int `json:"controllers"`
	Displays    int `json:"displays"`
}

// DebugResponse is the body of GET /debug.
type DebugResponse struct {
	Controllers []DebugController `json:"controllers"`
	Displays    []DebugDisplay    `json:"displays"`
	Totals      DebugTotals       `json:"totals"`
}

// DebugHandler dumps the registry.
type DebugHandler struct {
	registry Registry
}

// NewDebugHandler creates a new debug handler.
func NewDebugHandler(registry Registry) *DebugHandler {
	return &DebugHandler{registry: registry}
}

// HandleDebug handles GET /debug requests.
func (h *DebugHandler) HandleDebug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	controllers := h.registry.Snapshot(ctx, model.RoleController)
	displays := h.registry.Snapshot(ctx, model.RoleDisplay)

	resp := DebugResponse{
		Controllers: make([]DebugController, 0, len(controllers)),
		Displays:    make([]DebugDisplay, 0, len(displays)),
		// Totals come from the same snapshots so they always match the lists.
		Totals: DebugTotals{Controllers: len(controllers), Displays: len(displays)},
	}
	for i := range controllers {
		c := &controllers[i]
		var last any = noShake
		if c.LastShake != nil && normalize.Present(c.LastShake.Timestamp) {
			last = c.LastShake.Timestamp
		}
		resp.Controllers = append(resp.Controllers, DebugController{
			ID:          c.ID,
			Type:        c.Role.String(),
			ConnectedAt: types.Timestamp(c.ConnectedAt),
			LastShake:   last,
		})
	}
	for i := range displays {
		d := &displays[i]
		resp.Displays = append(resp.Displays, DebugDisplay{
			ID:          d.ID,
			Type:        d.Role.String(),
			ConnectedAt: types.Timestamp(d.ConnectedAt),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
