package api

import (
	"net/http"
	"sort"
)

type agentListItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Transport string `json:"transport"`
	Available bool   `json:"available"`
}

func (h *handler) listAgents(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeError(w, http.StatusInternalServerError, "agent registry unavailable")
		return
	}

	configs := h.registry.List()
	items := make([]agentListItem, 0, len(configs))
	for _, cfg := range configs {
		items = append(items, agentListItem{
			ID:        cfg.ID,
			Name:      cfg.Name,
			Transport: string(cfg.Transport),
			Available: h.agents.Available(cfg.ID),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	writeJSON(w, http.StatusOK, items)
}

func (h *handler) getAgent(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeError(w, http.StatusInternalServerError, "agent registry unavailable")
		return
	}
	cfg := h.registry.Get(r.PathValue("id"))
	if cfg == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *handler) getAgentCredentials(w http.ResponseWriter, r *http.Request) {
	status := h.gate.Check(r.PathValue("id"))
	writeJSON(w, http.StatusOK, status)
}

func (h *handler) reloadAgents(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeError(w, http.StatusInternalServerError, "agent registry unavailable")
		return
	}
	if err := h.registry.Reload(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": len(h.registry.List())})
}
