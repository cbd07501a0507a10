package www

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"cupline/store"
)

func (h *Handlers) apiListRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := h.db.ListRecipients(false)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, recipients)
}

func (h *Handlers) apiAddRecipient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if !strings.Contains(req.Email, "@") {
		h.jsonError(w, "invalid email address", http.StatusBadRequest)
		return
	}
	if err := h.db.AddRecipient(req.Email, store.FormatTime(time.Now())); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]string{"email": req.Email, "status": "added"})
}

func (h *Handlers) apiToggleRecipient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		Active bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.db.SetRecipientActive(req.Email, req.Active); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{"email": req.Email, "active": req.Active})
}
