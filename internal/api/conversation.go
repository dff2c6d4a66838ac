package api

import (
	"errors"
	"net/http"

	"github.com/user/agentdeck/internal/agent"
	"github.com/user/agentdeck/internal/pty"
)

type connectRequest struct {
	AgentType string `json:"agentType"`
	Cwd       string `json:"cwd,omitempty"`
}

type messageRequest struct {
	Message string `json:"message"`
}

func (h *handler) connectAgent(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.AgentType == "" {
		writeError(w, http.StatusBadRequest, "agentType is required")
		return
	}

	session, err := h.agents.Connect(req.AgentType, req.Cwd)
	if err != nil {
		status, msg := mapAgentError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *handler) disconnectAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.agents.Disconnect(); err != nil {
		status, msg := mapAgentError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handler) sendAgentMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	if err := h.agents.SendMessage(req.Message); err != nil {
		status, msg := mapAgentError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"streaming": true})
}

func (h *handler) finishAgentResponse(w http.ResponseWriter, r *http.Request) {
	h.agents.FinishResponse()
	writeJSON(w, http.StatusOK, map[string]bool{"streaming": false})
}

func (h *handler) getAgentSession(w http.ResponseWriter, r *http.Request) {
	session := h.agents.CurrentSession()
	if session == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *handler) getAgentOutput(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"output": h.agents.TakeOutput()})
}

// sendChatMessage drives the canned streamer instead of a real CLI. The
// response arrives over the websocket as chat_stream events.
func (h *handler) sendChatMessage(w http.ResponseWriter, r *http.Request) {
	if h.streamer == nil {
		writeError(w, http.StatusInternalServerError, "chat streamer unavailable")
		return
	}

	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	go h.streamer.Respond(req.Message)
	writeJSON(w, http.StatusAccepted, map[string]bool{"streaming": true})
}

func mapAgentError(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrUnknownAgent):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, agent.ErrCredentialsMissing),
		errors.Is(err, agent.ErrCLIUnavailable),
		errors.Is(err, agent.ErrUnsupportedTransport):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, agent.ErrAlreadyConnected),
		errors.Is(err, agent.ErrNoActiveSession),
		errors.Is(err, agent.ErrAlreadyStreaming):
		return http.StatusConflict, err.Error()
	case errors.Is(err, pty.ErrSessionExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, pty.ErrSessionNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
