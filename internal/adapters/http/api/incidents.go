package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/soarbridge/internal/domain/model"
)

// IncidentDependencies defines the interface for draining polled incidents.
type IncidentDependencies interface {
	Incidents(ctx context.Context, max int) []model.Incident
}

// IncidentsHandler handles incident requests.
type IncidentsHandler struct {
	deps IncidentDependencies
}

// NewIncidentsHandler creates a new incidents handler.
func NewIncidentsHandler(deps IncidentDependencies) *IncidentsHandler {
	return &IncidentsHandler{deps: deps}
}

// HandleDrain handles GET /incidents?max=N requests. Returned incidents are
// removed from the queue.
func (h *IncidentsHandler) HandleDrain(w http.ResponseWriter, r *http.Request) {
	const op = "api.drain_incidents"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	incidents := h.deps.Incidents(r.Context(), limit)
	if incidents == nil {
		incidents = []model.Incident{}
	}
	writeJSON(w, http.StatusOK, incidentsResponse{Count: len(incidents), Incidents: incidents})
}
