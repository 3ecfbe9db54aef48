package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	service "github.com/okian/soarbridge/internal/app"
	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/internal/domain/types"
)

// HeaderInvocationID lets the caller choose the invocation id echoed in
// responses and logs.
const HeaderInvocationID = "X-Invocation-ID"

const maxCommandBody = 1 << 20

// CommandDependencies defines the interface for command execution.
type CommandDependencies interface {
	Execute(ctx context.Context, inv service.Invocation) (*model.Result, error)
	Integrations() map[string][]string
}

// CommandsHandler handles command requests.
type CommandsHandler struct {
	deps CommandDependencies
}

// NewCommandsHandler creates a new commands handler.
func NewCommandsHandler(deps CommandDependencies) *CommandsHandler {
	return &CommandsHandler{deps: deps}
}

// HandleExecute handles POST /commands/{integration}/{command} requests.
// The body is {"args": {...}} and may be empty.
func (h *CommandsHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	const op = "api.execute"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	integration, command, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/commands/"), "/")
	if !ok || integration == "" || command == "" || strings.Contains(command, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("path must be /commands/{integration}/{command}")))
		return
	}

	var req commandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	inv := service.NewInvocation(integration, command, req.Args)
	if id := strings.TrimSpace(r.Header.Get(HeaderInvocationID)); id != "" {
		inv.ID = id
	}
	if inv.Args == nil {
		inv.Args = types.Args{}
	}
	w.Header().Set(HeaderInvocationID, inv.ID)

	res, err := h.deps.Execute(r.Context(), inv)
	if err != nil {
		status, code := classify(err)
		writeInvocationError(w, status, code, inv.ID, err)
		return
	}
	if res == nil {
		res = &model.Result{}
	}
	writeJSON(w, http.StatusOK, commandResponse{
		InvocationID: inv.ID,
		Integration:  integration,
		Command:      command,
		Result:       res,
	})
}

// HandleListIntegrations handles GET /integrations requests.
func (h *CommandsHandler) HandleListIntegrations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Integrations())
}
