package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handlers) apiListMachines(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.live.GetAll()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, snapshots)
}

func (h *Handlers) apiGetMachine(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.cfg.Machine(name) == nil {
		h.jsonError(w, "unknown machine", http.StatusNotFound)
		return
	}
	snapshot, err := h.live.Get(name)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if snapshot == nil {
		h.jsonError(w, "no data yet", http.StatusNotFound)
		return
	}
	h.jsonOK(w, snapshot)
}

func (h *Handlers) apiHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := h.db.Ping() == nil
	status := "ok"
	if !dbOK {
		status = "degraded"
	}
	h.jsonOK(w, map[string]any{
		"status":   status,
		"version":  h.version,
		"database": dbOK,
		"machines": len(h.cfg.Machines),
	})
}
