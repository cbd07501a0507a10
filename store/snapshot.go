package store

import "database/sql"

// Snapshot is the single mutable dashboard row per machine. It is overwritten
// every poll cycle and is never a source of truth for historical totals.
type Snapshot struct {
	MachineName string  `json:"machine_name"`
	CurrentCups int64   `json:"current_cups"`
	DailyTotal  int64   `json:"daily_total"`
	Shift       string  `json:"shift"`
	CoilNumber  string  `json:"coil_number"`
	FeedValue   float64 `json:"feed_value"`
	Size        string  `json:"size"`
	Status      string  `json:"status"`
	Connected   bool    `json:"connected"`
	UpdatedAt   string  `json:"updated_at"`
}

// UpsertSnapshot overwrites the machine's snapshot row. Each machine's loop
// writes only its own row, so concurrent upserts never collide.
func (db *DB) UpsertSnapshot(s *Snapshot) error {
	connected := 0
	if s.Connected {
		connected = 1
	}
	_, err := db.execWrite(db.Q(`INSERT INTO current_production
		(machine_name, current_cups, daily_total, shift, coil_number, feed_value, size, status, connected, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(machine_name) DO UPDATE SET
			current_cups=excluded.current_cups,
			daily_total=excluded.daily_total,
			shift=excluded.shift,
			coil_number=excluded.coil_number,
			feed_value=excluded.feed_value,
			size=excluded.size,
			status=excluded.status,
			connected=excluded.connected,
			updated_at=excluded.updated_at`),
		s.MachineName, s.CurrentCups, s.DailyTotal, s.Shift, s.CoilNumber,
		s.FeedValue, s.Size, s.Status, connected, s.UpdatedAt)
	return err
}

// GetSnapshot returns the machine's snapshot, or nil when no cycle has
// written one yet.
func (db *DB) GetSnapshot(machineName string) (*Snapshot, error) {
	row := db.QueryRow(db.Q(`SELECT machine_name, current_cups, daily_total, shift, coil_number, feed_value, size, status, connected, updated_at
		FROM current_production WHERE machine_name = ?`), machineName)
	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (db *DB) ListSnapshots() ([]*Snapshot, error) {
	rows, err := db.Query(`SELECT machine_name, current_cups, daily_total, shift, coil_number, feed_value, size, status, connected, updated_at
		FROM current_production ORDER BY machine_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(r rowScanner) (*Snapshot, error) {
	var s Snapshot
	var connected int
	if err := r.Scan(&s.MachineName, &s.CurrentCups, &s.DailyTotal, &s.Shift, &s.CoilNumber,
		&s.FeedValue, &s.Size, &s.Status, &connected, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Connected = connected != 0
	return &s, nil
}
