package store

// CoilConsumption is one completed coil run. Rows are written once, at the
// rising trigger edge that closes the coil, and never updated.
type CoilConsumption struct {
	ID               int64  `json:"id"`
	MachineName      string `json:"machine_name"`
	CoilID           string `json:"coil_id"`
	LotNumber        string `json:"lot_number"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	ConsumedQuantity int64  `json:"consumed_quantity"`
	Unit             string `json:"unit"`
	ProductionDate   string `json:"production_date"`
	Shift            string `json:"shift"`
	ConsumptionType  string `json:"consumption_type"`
	CoilType         string `json:"coil_type"`
}

func (db *DB) InsertCoilConsumption(c *CoilConsumption) error {
	if c.Unit == "" {
		c.Unit = "cups"
	}
	res, err := db.execWrite(db.Q(`INSERT INTO coil_consumption_lots
		(machine_name, coil_id, lot_number, start_time, end_time, consumed_quantity, unit, production_date, shift, consumption_type, coil_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.MachineName, c.CoilID, c.LotNumber, c.StartTime, c.EndTime, c.ConsumedQuantity,
		c.Unit, c.ProductionDate, c.Shift, c.ConsumptionType, c.CoilType)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		c.ID = id
	}
	return nil
}

func (db *DB) ListCoilConsumptions(machineName string, limit int) ([]*CoilConsumption, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, machine_name, coil_id, lot_number, start_time, end_time, consumed_quantity, unit, production_date, shift, consumption_type, coil_type
		FROM coil_consumption_lots`
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
	var out []*CoilConsumption
	for rows.Next() {
		var c CoilConsumption
		if err := rows.Scan(&c.ID, &c.MachineName, &c.CoilID, &c.LotNumber, &c.StartTime, &c.EndTime,
			&c.ConsumedQuantity, &c.Unit, &c.ProductionDate, &c.Shift, &c.ConsumptionType, &c.CoilType); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
