package api

import (
	"errors"
	"net/http"

	"github.com/user/agentdeck/internal/pty"
)

type createPTYRequest struct {
	ID string `json:"id"`
}

type spawnPTYRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
	Cwd     string   `json:"cwd,omitempty"`
}

type writePTYRequest struct {
	Data string `json:"data"`
}

type resizePTYRequest struct {
	Rows uint16 `json:"rows"`
	Cols uint16 `json:"cols"`
}

func (h *handler) createPTYSession(w http.ResponseWriter, r *http.Request) {
	var req createPTYRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.term.Create(req.ID); err != nil {
		status, msg := mapPTYError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

func (h *handler) spawnPTYSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req spawnPTYRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	if err := h.term.Spawn(id, req.Command, req.Args, req.Cwd, nil, h.sink); err != nil {
		status, msg := mapPTYError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *handler) writePTYSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req writePTYRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Data == "" {
		writeError(w, http.StatusBadRequest, "data is required")
		return
	}

	if err := h.term.Write(id, req.Data); err != nil {
		status, msg := mapPTYError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handler) resizePTYSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req resizePTYRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Rows == 0 || req.Cols == 0 {
		writeError(w, http.StatusBadRequest, "rows and cols must be positive")
		return
	}

	if err := h.term.Resize(id, req.Rows, req.Cols); err != nil {
		status, msg := mapPTYError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// removePTYSession stops the reader and tears the session down. Removal of
// an unknown session is a no-op, matching the manager.
func (h *handler) removePTYSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.term.Stop(id)
	h.term.Remove(id)
	writeJSON(w, http.StatusNoContent, nil)
}

func mapPTYError(err error) (int, string) {
	switch {
	case errors.Is(err, pty.ErrSessionExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, pty.ErrSessionNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, pty.ErrSpawnFailed), errors.Is(err, pty.ErrWriteFailed), errors.Is(err, pty.ErrResizeFailed):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
