// Package www serves the JSON API: live machine snapshots, production
// summaries, lot submission, and recipient administration.
package www

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cupline/config"
	"cupline/livestate"
	"cupline/notify"
	"cupline/shiftclock"
	"cupline/store"
)

type Handlers struct {
	cfg      *config.Config
	db       *store.DB
	live     *livestate.Manager
	notifier notify.Notifier
	clock    *shiftclock.Clock
	version  string
}

func NewRouter(cfg *config.Config, db *store.DB, live *livestate.Manager, notifier notify.Notifier, version string) http.Handler {
	clock := shiftclock.New(cfg.ShiftClock.CutoverHour, cfg.ShiftClock.GraceSeconds,
		cfg.ShiftClock.DayStartHour, cfg.ShiftClock.DayEndHour)
	h := &Handlers{cfg: cfg, db: db, live: live, notifier: notifier, clock: clock, version: version}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", h.apiHealth)
	r.Get("/api/machines", h.apiListMachines)
	r.Get("/api/machines/{name}", h.apiGetMachine)

	r.Get("/api/production/shift", h.apiProductionByShift)
	r.Get("/api/production/coil", h.apiProductionByCoil)
	r.Get("/api/production/date", h.apiProductionByDate)
	r.Get("/api/production/recent", h.apiRecentProduction)
	r.Get("/api/coils", h.apiListCoils)

	r.Get("/api/lots/{machine}", h.apiGetLot)
	r.Post("/api/lots", h.apiSubmitLot)

	r.Get("/api/adjustments", h.apiListAdjustments)
	r.Post("/api/adjustments", h.apiCreateAdjustment)

	r.Get("/api/recipients", h.apiListRecipients)
	r.Post("/api/recipients", h.apiAddRecipient)
	r.Post("/api/recipients/toggle", h.apiToggleRecipient)

	return r
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
