package store

import "database/sql"

// LotConfig is the operator-maintained lot assignment for one machine. The
// previous lot is kept in the outgoing fields as a one-step history, stamped
// with the time it was replaced.
type LotConfig struct {
	MachineName string `json:"machine_name"`
	CurrentLot  string `json:"current_lot"`
	CoilType    string `json:"coil_type"`
	OutgoingLot string `json:"outgoing_lot"`
	OutgoingAt  string `json:"outgoing_at"`
	UpdatedAt   string `json:"updated_at"`
}

// GetLotConfig returns the lot config for a machine, or nil when none has
// been submitted yet.
func (db *DB) GetLotConfig(machineName string) (*LotConfig, error) {
	var lc LotConfig
	err := db.QueryRow(db.Q(`SELECT machine_name, current_lot, coil_type, outgoing_lot, outgoing_at, updated_at
		FROM lot_config WHERE machine_name = ?`), machineName).
		Scan(&lc.MachineName, &lc.CurrentLot, &lc.CoilType, &lc.OutgoingLot, &lc.OutgoingAt, &lc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lc, nil
}

// SaveLot stores a newly submitted lot. When the machine already has a
// different current lot, that lot moves into the outgoing fields first.
func (db *DB) SaveLot(machineName, lot, coilType, now string) error {
	existing, err := db.GetLotConfig(machineName)
	if err != nil {
		return err
	}
	outgoingLot, outgoingAt := "", ""
	if existing != nil {
		outgoingLot, outgoingAt = existing.OutgoingLot, existing.OutgoingAt
		if existing.CurrentLot != "" && existing.CurrentLot != lot {
			outgoingLot, outgoingAt = existing.CurrentLot, now
		}
	}
	_, err = db.execWrite(db.Q(`INSERT INTO lot_config (machine_name, current_lot, coil_type, outgoing_lot, outgoing_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(machine_name) DO UPDATE SET
			current_lot=excluded.current_lot,
			coil_type=excluded.coil_type,
			outgoing_lot=excluded.outgoing_lot,
			outgoing_at=excluded.outgoing_at,
			updated_at=excluded.updated_at`),
		machineName, lot, coilType, outgoingLot, outgoingAt, now)
	return err
}
