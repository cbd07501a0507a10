package www

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cupline/store"
)

type adjustmentRequest struct {
	MachineName string `json:"machine_name"`
	Quantity    int64  `json:"quantity"`
	Reason      string `json:"reason"`
	Actor       string `json:"actor"`
}

// apiCreateAdjustment records a manual correction to a machine's counted
// totals. The correction is stamped with the shift and production day of the
// moment it is made.
func (h *Handlers) apiCreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid json", http.StatusBadRequest)
		return
	}
	if h.cfg.Machine(req.MachineName) == nil {
		h.jsonError(w, "unknown machine", http.StatusNotFound)
		return
	}
	if req.Quantity == 0 {
		h.jsonError(w, "quantity must be non-zero", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		h.jsonError(w, "reason is required", http.StatusBadRequest)
		return
	}

	now := time.Now()
	shift, prodDate := h.clock.At(now)
	adj := &store.Adjustment{
		MachineName:    req.MachineName,
		Quantity:       req.Quantity,
		Reason:         strings.TrimSpace(req.Reason),
		Actor:          strings.TrimSpace(req.Actor),
		ProductionDate: prodDate,
		Shift:          shift,
		CreatedAt:      store.FormatTime(now),
	}

	lot := ""
	if lc, err := h.db.GetLotConfig(req.MachineName); err == nil && lc != nil {
		lot = lc.CurrentLot
	}
	if err := h.db.CreateAdjustment(adj, lot); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, adj)
}

func (h *Handlers) apiListAdjustments(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	adjustments, err := h.db.ListAdjustments(r.URL.Query().Get("machine"), limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, adjustments)
}
