package www

import (
	"net/http"
	"strconv"
)

func (h *Handlers) apiProductionByShift(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.db.ProductionByShift(r.URL.Query().Get("machine"))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, summaries)
}

func (h *Handlers) apiProductionByCoil(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.db.ProductionByCoil(r.URL.Query().Get("machine"))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, summaries)
}

func (h *Handlers) apiProductionByDate(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.db.ProductionByDate(r.URL.Query().Get("machine"))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, summaries)
}

func (h *Handlers) apiRecentProduction(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	var sinceID int64
	if s := r.URL.Query().Get("since_id"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			h.jsonError(w, "invalid since_id", http.StatusBadRequest)
			return
		}
		sinceID = n
	}
	records, err := h.db.RecentProduction(limit, sinceID)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, records)
}

func (h *Handlers) apiListCoils(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	coils, err := h.db.ListCoilConsumptions(r.URL.Query().Get("machine"), limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, coils)
}
