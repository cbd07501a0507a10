package www

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cupline/config"
	"cupline/livestate"
	"cupline/notify"
	"cupline/store"
)

type recordingNotifier struct {
	subjects []string
}

func (r *recordingNotifier) Notify(subject string, _ notify.BodyVariants, _ bool, _ []notify.Attachment) {
	r.subjects = append(r.subjects, subject)
}

func newTestServer(t *testing.T) (*httptest.Server, *store.DB, *recordingNotifier) {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "www.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		ShiftClock: config.ShiftClockConfig{CutoverHour: 6, GraceSeconds: 30, DayStartHour: 6, DayEndHour: 18},
		Machines:   []config.MachineConfig{{Name: "M1"}, {Name: "M2"}},
	}
	// Redis is intentionally unreachable; the live manager falls back to SQL.
	rds := livestate.NewRedisStore(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
	}))
	live := livestate.NewManager(db, rds)
	notifier := &recordingNotifier{}

	srv := httptest.NewServer(NewRouter(cfg, db, live, notifier, "test"))
	t.Cleanup(srv.Close)
	return srv, db, notifier
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestSubmitLot(t *testing.T) {
	srv, db, notifier := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/lots", map[string]string{
		"machine_name": "M1",
		"lot_number":   "abc123",
		"coil_type":    "standard",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lc, err := db.GetLotConfig("M1")
	require.NoError(t, err)
	require.NotNil(t, lc)
	assert.Equal(t, "ABC123", lc.CurrentLot, "lot numbers are stored upper case")
	assert.Equal(t, "standard", lc.CoilType)
	require.Len(t, notifier.subjects, 1)
	assert.Contains(t, notifier.subjects[0], "ABC123")
}

func TestSubmitLotValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/lots", map[string]string{
		"machine_name": "M1",
		"lot_number":   "ab",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/lots", map[string]string{
		"machine_name": "NOPE",
		"lot_number":   "ABC123",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetMachine(t *testing.T) {
	srv, db, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/machines/NOPE")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/machines/M1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no snapshot yet")

	require.NoError(t, db.UpsertSnapshot(&store.Snapshot{
		MachineName: "M1",
		CurrentCups: 42,
		Shift:       "DAY (06-18)",
		Connected:   true,
		UpdatedAt:   store.FormatTime(time.Now()),
	}))
	resp, err = http.Get(srv.URL + "/api/machines/M1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s store.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, int64(42), s.CurrentCups)
}

func TestRecentProduction(t *testing.T) {
	srv, db, _ := newTestServer(t)
	now := store.FormatTime(time.Now())
	for i := 0; i < 3; i++ {
		require.NoError(t, db.InsertProductionRecord(&store.ProductionRecord{
			Timestamp:      now,
			MachineName:    "M1",
			CoilNumber:     "LOT001",
			CupsProduced:   int64(100 + i),
			Shift:          "DAY (06-18)",
			ProductionDate: "2026-08-30",
			IntervalStart:  now,
			IntervalEnd:    now,
		}))
	}

	resp, err := http.Get(srv.URL + "/api/production/recent?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var records []*store.ProductionRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 2)
	assert.Equal(t, int64(102), records[0].CupsProduced, "newest first")
}

func TestCreateAdjustment(t *testing.T) {
	srv, db, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/adjustments", map[string]any{
		"machine_name": "M1",
		"quantity":     -250,
		"reason":       "double count after sensor swap",
		"actor":        "supervisor",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	adjustments, err := db.ListAdjustments("M1", 10)
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, int64(-250), adjustments[0].Quantity)

	// The correction is also a ledger row, so summaries include it.
	records, err := db.RecentProduction(10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Adjustment", records[0].ConsumptionType)
	assert.Equal(t, int64(-250), records[0].CupsProduced)

	resp = postJSON(t, srv.URL+"/api/adjustments", map[string]any{
		"machine_name": "M1",
		"quantity":     0,
		"reason":       "noop",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, true, health["database"])
}
