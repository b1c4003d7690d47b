// Package handlers exposes the HTTP surface: the command endpoint and health.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tagtalk/tagtalk/internal/command"
	"github.com/tagtalk/tagtalk/internal/request"
	"go.uber.org/zap"
)

// CommandRequest is the body of POST /api/v1/commands
type CommandRequest struct {
	Text string `json:"text"`
}

// CommandHandler handles conversational command requests
type CommandHandler struct {
	orchestrator *command.Orchestrator
	logger       *zap.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(orchestrator *command.Orchestrator, logger *zap.Logger) *CommandHandler {
	return &CommandHandler{orchestrator: orchestrator, logger: logger}
}

// HandleCommand handles POST /api/v1/commands
func (h *CommandHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	id, ok := request.IdentityFromContext(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	resp := h.orchestrator.HandleCommand(r.Context(), id.UserID, id.Token, req.Text)
	if resp.Kind == command.ResponseError {
		respondJSONError(w, statusFor(resp), string(resp.Err.Kind), resp.Err.UserMessage)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// statusFor maps a command response onto an HTTP status. Clarifications are
// successful responses; only errors leave the 2xx range.
func statusFor(resp command.Response) int {
	if resp.Kind != command.ResponseError {
		return http.StatusOK
	}
	switch resp.Err.Kind {
	case command.ErrorValidation:
		return http.StatusBadRequest
	case command.ErrorAuth:
		if resp.Err.StatusCode != 0 {
			return resp.Err.StatusCode
		}
		return http.StatusUnauthorized
	case command.ErrorUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
