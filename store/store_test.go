package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cupline/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	}
	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertProductionRecordEnqueuesOutbox(t *testing.T) {
	db := openTestDB(t)

	rec := &ProductionRecord{
		Timestamp:       "2026-03-10 14:00:00",
		MachineName:     "Cupper_22",
		CoilNumber:      "L123456",
		CupsProduced:    4200,
		ConsumptionType: "Complete",
		Shift:           "DAY (06-18)",
		ProductionDate:  "2026-03-10",
		CounterValue:    150000,
		IntervalStart:   "2026-03-10 08:00:00",
		IntervalEnd:     "2026-03-10 14:00:00",
	}
	require.NoError(t, db.InsertProductionRecord(rec))
	assert.NotZero(t, rec.ID)

	pending, err := db.PendingOutbox(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "production_record", pending[0].Kind)
	assert.Equal(t, "Cupper_22", pending[0].MachineName)

	require.NoError(t, db.MarkOutboxSent(pending[0].ID, "2026-03-10 14:00:05"))
	pending, err = db.PendingOutbox(10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProductionGroupings(t *testing.T) {
	db := openTestDB(t)

	insert := func(ts, machine, coil, shift, date string, cups int64) {
		require.NoError(t, db.InsertProductionRecord(&ProductionRecord{
			Timestamp: ts, MachineName: machine, CoilNumber: coil,
			CupsProduced: cups, Shift: shift, ProductionDate: date,
		}))
	}
	insert("2026-03-10 08:00:00", "Cupper_22", "L1", "DAY (06-18)", "2026-03-10", 100)
	insert("2026-03-10 12:00:00", "Cupper_22", "L1", "DAY (06-18)", "2026-03-10", 50)
	insert("2026-03-10 20:00:00", "Cupper_22", "L2", "NIGHT (18-06)", "2026-03-10", 30)
	insert("2026-03-11 09:00:00", "Cupper_23", "L9", "DAY (06-18)", "2026-03-11", 70)

	byShift, err := db.ProductionByShift("Cupper_22")
	require.NoError(t, err)
	require.Len(t, byShift, 2)
	assert.Equal(t, "NIGHT (18-06)", byShift[0].Shift)
	assert.Equal(t, int64(30), byShift[0].Total)
	assert.Equal(t, int64(150), byShift[1].Total)

	byCoil, err := db.ProductionByCoil("")
	require.NoError(t, err)
	require.Len(t, byCoil, 3)

	byDate, err := db.ProductionByDate("Cupper_22")
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, int64(180), byDate[0].Total)
}

func TestRecentProductionSinceID(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.InsertProductionRecord(&ProductionRecord{
			Timestamp: "2026-03-10 08:00:00", MachineName: "Cupper_22",
			CoilNumber: "L1", CupsProduced: int64(i + 1),
			Shift: "DAY (06-18)", ProductionDate: "2026-03-10",
		}))
	}

	all, err := db.RecentProduction(100, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	// Newest first.
	assert.Greater(t, all[0].ID, all[4].ID)

	since, err := db.RecentProduction(100, all[2].ID)
	require.NoError(t, err)
	assert.Len(t, since, 2)
}

func TestSnapshotUpsertOverwrites(t *testing.T) {
	db := openTestDB(t)

	s := &Snapshot{MachineName: "Cupper_22", CurrentCups: 10, DailyTotal: 100, Shift: "DAY (06-18)", Connected: true, UpdatedAt: "2026-03-10 08:00:00"}
	require.NoError(t, db.UpsertSnapshot(s))
	s.CurrentCups = 25
	s.DailyTotal = 115
	require.NoError(t, db.UpsertSnapshot(s))

	got, err := db.GetSnapshot("Cupper_22")
	require.NoError(t, err)
	assert.Equal(t, int64(25), got.CurrentCups)
	assert.Equal(t, int64(115), got.DailyTotal)
	assert.True(t, got.Connected)

	list, err := db.ListSnapshots()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSaveLotMovesCurrentToOutgoing(t *testing.T) {
	db := openTestDB(t)

	lc, err := db.GetLotConfig("Cupper_22")
	require.NoError(t, err)
	assert.Nil(t, lc)

	require.NoError(t, db.SaveLot("Cupper_22", "L111", "M", "2026-03-10 08:00:00"))
	lc, err = db.GetLotConfig("Cupper_22")
	require.NoError(t, err)
	assert.Equal(t, "L111", lc.CurrentLot)
	assert.Empty(t, lc.OutgoingLot)

	require.NoError(t, db.SaveLot("Cupper_22", "L222", "Alu", "2026-03-10 12:00:00"))
	lc, err = db.GetLotConfig("Cupper_22")
	require.NoError(t, err)
	assert.Equal(t, "L222", lc.CurrentLot)
	assert.Equal(t, "L111", lc.OutgoingLot)
	assert.Equal(t, "2026-03-10 12:00:00", lc.OutgoingAt)

	// Re-submitting the same lot must not rotate it into outgoing.
	require.NoError(t, db.SaveLot("Cupper_22", "L222", "Alu", "2026-03-10 13:00:00"))
	lc, err = db.GetLotConfig("Cupper_22")
	require.NoError(t, err)
	assert.Equal(t, "L111", lc.OutgoingLot)
	assert.Equal(t, "2026-03-10 12:00:00", lc.OutgoingAt)
}

func TestSchemaRepairOnOldDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	// Simulate a database created before the production_date columns existed.
	raw, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE production_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		machine_name TEXT NOT NULL,
		coil_number TEXT NOT NULL,
		cups_produced INTEGER NOT NULL,
		consumption_type TEXT,
		shift TEXT NOT NULL
	)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO production_records (timestamp, machine_name, coil_number, cups_produced, shift)
		VALUES ('2026-01-01 10:00:00', 'Cupper_22', 'L0', 5, 'DAY (06-18)')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db, err := Open(&config.DatabaseConfig{Driver: "sqlite", SQLite: config.SQLiteConfig{Path: path}})
	require.NoError(t, err)
	defer db.Close()

	// Old row survives with the safe default; new writes carry the column.
	recs, err := db.RecentProduction(10, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].ProductionDate)

	require.NoError(t, db.InsertProductionRecord(&ProductionRecord{
		Timestamp: "2026-03-10 08:00:00", MachineName: "Cupper_22", CoilNumber: "L1",
		CupsProduced: 10, Shift: "DAY (06-18)", ProductionDate: "2026-03-10",
	}))
	recs, err = db.RecentProduction(10, 0)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", recs[0].ProductionDate)
}

func TestTransactionalWriteRepairsMissingColumn(t *testing.T) {
	db := openTestDB(t)

	// Regress the schema underneath the open handle, as if another process
	// with an older binary had rebuilt the table.
	_, err := db.Exec(`ALTER TABLE production_records DROP COLUMN counter_value`)
	require.NoError(t, err)

	rec := &ProductionRecord{
		Timestamp: "2026-03-10 08:00:00", MachineName: "Cupper_22", CoilNumber: "L1",
		CupsProduced: 10, Shift: "DAY (06-18)", ProductionDate: "2026-03-10",
		CounterValue: 12345,
	}
	require.NoError(t, db.InsertProductionRecord(rec), "ledger write must repair the schema and retry")

	recs, err := db.RecentProduction(10, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(12345), recs[0].CounterValue)

	// The outbox half of the transaction survived the retry too.
	pending, err := db.PendingOutbox(10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a=$1 AND b=$2", Rebind("SELECT * FROM t WHERE a=? AND b=?"))
}
