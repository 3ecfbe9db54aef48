// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/soarbridge/internal/adapters/clarizen"
	"github.com/okian/soarbridge/internal/adapters/http/rest"
	service "github.com/okian/soarbridge/internal/app"
	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CommandDependencies
	IncidentDependencies
	StatsProvider
}

// Server wires HTTP routes for the command API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	commandsHandler  *CommandsHandler
	incidentsHandler *IncidentsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		commandsHandler:  NewCommandsHandler(deps),
		incidentsHandler: NewIncidentsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/integrations", MetricsMiddleware(s.commandsHandler.HandleListIntegrations, "integrations"))
	mux.HandleFunc("/commands/", MetricsMiddleware(s.commandsHandler.HandleExecute, "commands"))
	mux.HandleFunc("/incidents", MetricsMiddleware(s.incidentsHandler.HandleDrain, "incidents"))
}

type commandRequest struct {
	Args types.Args `json:"args"`
}

type commandResponse struct {
	InvocationID string        `json:"invocation_id"`
	Integration  string        `json:"integration"`
	Command      string        `json:"command"`
	Result       *model.Result `json:"result"`
}

type incidentsResponse struct {
	Count     int              `json:"count"`
	Incidents []model.Incident `json:"incidents"`
}

type errorResponse struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	InvocationID string `json:"invocation_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeInvocationError(w, status, code, "", err)
}

func writeInvocationError(w http.ResponseWriter, status int, code, invocationID string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, InvocationID: invocationID})
}

// classify maps a command error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, types.ErrInvalidArgument):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, service.ErrUnknownIntegration),
		errors.Is(err, service.ErrUnknownCommand):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, rest.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, rest.ErrBadStatus),
		errors.Is(err, rest.ErrTransport),
		errors.Is(err, rest.ErrDecode),
		errors.Is(err, clarizen.ErrLogin):
		return http.StatusBadGateway, "vendor_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
