package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the canonical timestamp format stored in TEXT columns.
const TimeLayout = "2006-01-02 15:04:05"

// ProductionRecord is one closed accounting interval: a shift closure or a
// coil closure. Rows are append-only; the quantity is the counted delta since
// the interval's reference point, never recomputed from the raw source.
type ProductionRecord struct {
	ID              int64  `json:"id"`
	Timestamp       string `json:"timestamp"`
	MachineName     string `json:"machine_name"`
	CoilNumber      string `json:"coil_number"`
	CupsProduced    int64  `json:"cups_produced"`
	ConsumptionType string `json:"consumption_type"`
	Shift           string `json:"shift"`
	ProductionDate  string `json:"production_date"`
	CounterValue    int64  `json:"counter_value"`
	IntervalStart   string `json:"interval_start"`
	IntervalEnd     string `json:"interval_end"`
}

// InsertProductionRecord appends one ledger row and enqueues a matching
// outbox event in the same transaction, so external sync never misses a row
// the ledger has and never sees one it doesn't. These statements touch the
// migrated columns, so they go through the repair-and-retry path.
func (db *DB) InsertProductionRecord(rec *ProductionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}
	return db.writeTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(db.Q(`INSERT INTO production_records
			(timestamp, machine_name, coil_number, cups_produced, consumption_type, shift, production_date, counter_value, interval_start, interval_end)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			rec.Timestamp, rec.MachineName, rec.CoilNumber, rec.CupsProduced, rec.ConsumptionType,
			rec.Shift, rec.ProductionDate, rec.CounterValue, rec.IntervalStart, rec.IntervalEnd)
		if err != nil {
			return err
		}
		if id, err := res.LastInsertId(); err == nil {
			rec.ID = id
		}
		_, err = tx.Exec(db.Q(`INSERT INTO outbox (topic, payload, kind, machine_name, created_at) VALUES (?, ?, ?, ?, ?)`),
			"", payload, "production_record", rec.MachineName, rec.Timestamp)
		return err
	})
}

// ShiftSummary is production grouped by shift within a production day.
type ShiftSummary struct {
	MachineName    string `json:"machine_name"`
	ProductionDate string `json:"production_date"`
	Shift          string `json:"shift"`
	CoilNumber     string `json:"coil_number"`
	Total          int64  `json:"total"`
	LastUpdate     string `json:"last_update"`
}

func (db *DB) ProductionByShift(machineName string) ([]*ShiftSummary, error) {
	query := `SELECT machine_name, production_date, shift, coil_number, SUM(cups_produced) AS total, MAX(timestamp) AS last_update
		FROM production_records`
	var args []any
	if machineName != "" {
		query += ` WHERE machine_name = ?`
		args = append(args, machineName)
	}
	query += ` GROUP BY machine_name, production_date, shift, coil_number ORDER BY last_update DESC`

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ShiftSummary
	for rows.Next() {
		var s ShiftSummary
		if err := rows.Scan(&s.MachineName, &s.ProductionDate, &s.Shift, &s.CoilNumber, &s.Total, &s.LastUpdate); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// CoilSummary is production consolidated per coil number.
type CoilSummary struct {
	MachineName string `json:"machine_name"`
	CoilNumber  string `json:"coil_number"`
	Shift       string `json:"shift"`
	Total       int64  `json:"total"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

func (db *DB) ProductionByCoil(machineName string) ([]*CoilSummary, error) {
	query := `SELECT machine_name, coil_number, MAX(shift) AS shift, SUM(cups_produced) AS total, MIN(timestamp) AS start_time, MAX(timestamp) AS end_time
		FROM production_records`
	var args []any
	if machineName != "" {
		query += ` WHERE machine_name = ?`
		args = append(args, machineName)
	}
	query += ` GROUP BY machine_name, coil_number ORDER BY end_time DESC LIMIT 50`

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*CoilSummary
	for rows.Next() {
		var s CoilSummary
		if err := rows.Scan(&s.MachineName, &s.CoilNumber, &s.Shift, &s.Total, &s.StartTime, &s.EndTime); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// DateSummary is production totalled per production day.
type DateSummary struct {
	MachineName    string `json:"machine_name"`
	ProductionDate string `json:"production_date"`
	Total          int64  `json:"total"`
	Records        int64  `json:"records"`
}

func (db *DB) ProductionByDate(machineName string) ([]*DateSummary, error) {
	query := `SELECT machine_name, production_date, SUM(cups_produced) AS total, COUNT(*) AS records
		FROM production_records`
	var args []any
	if machineName != "" {
		query += ` WHERE machine_name = ?`
		args = append(args, machineName)
	}
	query += ` GROUP BY machine_name, production_date ORDER BY production_date DESC LIMIT 90`

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*DateSummary
	for rows.Next() {
		var s DateSummary
		if err := rows.Scan(&s.MachineName, &s.ProductionDate, &s.Total, &s.Records); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// RecentProduction returns the newest ledger rows, optionally only those past
// a monotonic id so external systems can sync incrementally.
func (db *DB) RecentProduction(limit int, sinceID int64) ([]*ProductionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, timestamp, machine_name, coil_number, cups_produced, COALESCE(consumption_type,''), shift, production_date, counter_value, interval_start, interval_end
		FROM production_records`
	var args []any
	if sinceID > 0 {
		query += ` WHERE id > ?`
		args = append(args, sinceID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ProductionRecord
	for rows.Next() {
		var r ProductionRecord
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.MachineName, &r.CoilNumber, &r.CupsProduced,
			&r.ConsumptionType, &r.Shift, &r.ProductionDate, &r.CounterValue, &r.IntervalStart, &r.IntervalEnd); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// FormatTime renders t in the store's canonical layout.
func FormatTime(t time.Time) string { return t.Format(TimeLayout) }
