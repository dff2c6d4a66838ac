package api

import (
	"net/http"
	"strconv"

	"github.com/user/agentdeck/internal/db"
)

func (h *handler) listHistory(w http.ResponseWriter, r *http.Request) {
	if h.conversations == nil {
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	conversations, err := h.conversations.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conversations == nil {
		conversations = []*db.Conversation{}
	}
	writeJSON(w, http.StatusOK, conversations)
}
