package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Adjustment is a manual correction to the counted totals: a signed quantity,
// a reason, and who made it. Each adjustment also lands in the production
// ledger so summaries and the sync stream pick it up like any other interval.
type Adjustment struct {
	ID             int64  `json:"id"`
	MachineName    string `json:"machine_name"`
	Quantity       int64  `json:"quantity"`
	Reason         string `json:"reason"`
	Actor          string `json:"actor"`
	ProductionDate string `json:"production_date"`
	Shift          string `json:"shift"`
	CreatedAt      string `json:"created_at"`
}

// CreateAdjustment writes the audit row, the matching ledger row, and the
// outbox event in one transaction, with the same missing-column repair as
// any other ledger write.
func (db *DB) CreateAdjustment(a *Adjustment, lot string) error {
	return db.writeTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(db.Q(`INSERT INTO adjustments (machine_name, quantity, reason, actor, production_date, shift, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			a.MachineName, a.Quantity, a.Reason, a.Actor, a.ProductionDate, a.Shift, a.CreatedAt)
		if err != nil {
			return err
		}
		if id, err := res.LastInsertId(); err == nil {
			a.ID = id
		}

		if _, err := tx.Exec(db.Q(`INSERT INTO production_records
			(timestamp, machine_name, coil_number, cups_produced, consumption_type, shift, production_date, counter_value, interval_start, interval_end)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`),
			a.CreatedAt, a.MachineName, lot, a.Quantity, "Adjustment",
			a.Shift, a.ProductionDate, a.CreatedAt, a.CreatedAt); err != nil {
			return err
		}

		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode outbox payload: %w", err)
		}
		_, err = tx.Exec(db.Q(`INSERT INTO outbox (topic, payload, kind, machine_name, created_at) VALUES (?, ?, ?, ?, ?)`),
			"", payload, "adjustment", a.MachineName, a.CreatedAt)
		return err
	})
}

func (db *DB) ListAdjustments(machineName string, limit int) ([]*Adjustment, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, machine_name, quantity, reason, actor, production_date, shift, created_at FROM adjustments`
	var args []any
	if machineName != "" {
		query += ` WHERE machine_name = ?`
		args = append(args, machineName)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Adjustment
	for rows.Next() {
		var a Adjustment
		if err := rows.Scan(&a.ID, &a.MachineName, &a.Quantity, &a.Reason, &a.Actor,
			&a.ProductionDate, &a.Shift, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
