package api

import (
	"net/http"
	"time"

	service "github.com/okian/soarbridge/internal/app"
)

// StatsProvider reports service statistics.
type StatsProvider interface {
	GetStats() service.Stats
}

// statsResponse is the /stats body: the service view stamped with the
// time it was taken.
type statsResponse struct {
	service.Stats
	Time string `json:"time"`
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	stats StatsProvider
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(stats StatsProvider) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Stats: h.stats.GetStats(),
		Time:  time.Now().UTC().Format(time.RFC3339),
	})
}
