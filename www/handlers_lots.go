package www

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"cupline/notify"
	"cupline/store"
)

type lotRequest struct {
	MachineName string `json:"machine_name"`
	LotNumber   string `json:"lot_number"`
	CoilType    string `json:"coil_type"`
}

func (h *Handlers) apiGetLot(w http.ResponseWriter, r *http.Request) {
	machine := chi.URLParam(r, "machine")
	if h.cfg.Machine(machine) == nil {
		h.jsonError(w, "unknown machine", http.StatusNotFound)
		return
	}
	lc, err := h.db.GetLotConfig(machine)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if lc == nil {
		h.jsonError(w, "no lot submitted", http.StatusNotFound)
		return
	}
	h.jsonOK(w, lc)
}

// apiSubmitLot registers the operator's lot for a machine. Lot numbers are
// normalised to upper case before storage.
func (h *Handlers) apiSubmitLot(w http.ResponseWriter, r *http.Request) {
	var req lotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.LotNumber = strings.ToUpper(strings.TrimSpace(req.LotNumber))
	req.CoilType = strings.TrimSpace(req.CoilType)

	if h.cfg.Machine(req.MachineName) == nil {
		h.jsonError(w, "unknown machine", http.StatusNotFound)
		return
	}
	if len(req.LotNumber) < 3 {
		h.jsonError(w, "lot number must be at least 3 characters", http.StatusBadRequest)
		return
	}

	now := store.FormatTime(time.Now())
	if err := h.db.SaveLot(req.MachineName, req.LotNumber, req.CoilType, now); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.notifier.Notify(
		fmt.Sprintf("Lot %s accepted for %s", req.LotNumber, req.MachineName),
		notify.FormatLotAccepted(req.MachineName, req.LotNumber, req.CoilType),
		false, nil)

	lc, err := h.db.GetLotConfig(req.MachineName)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, lc)
}
