package store

// OutboxEntry is a ledger event waiting to be published to the external sync
// stream. Entries are written in the same transaction as the ledger row they
// mirror and marked sent by the drainer.
type OutboxEntry struct {
	ID          int64
	Topic       string
	Payload     []byte
	Kind        string
	MachineName string
	CreatedAt   string
}

// EnqueueOutbox stores a standalone event (ledger inserts enqueue within
// their own transaction instead).
func (db *DB) EnqueueOutbox(topic string, payload []byte, kind, machineName, now string) error {
	_, err := db.execWrite(db.Q(`INSERT INTO outbox (topic, payload, kind, machine_name, created_at) VALUES (?, ?, ?, ?, ?)`),
		topic, payload, kind, machineName, now)
	return err
}

// PendingOutbox returns unsent entries oldest first.
func (db *DB) PendingOutbox(limit int) ([]*OutboxEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(db.Q(`SELECT id, topic, payload, kind, machine_name, created_at
		FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.Topic, &e.Payload, &e.Kind, &e.MachineName, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (db *DB) MarkOutboxSent(id int64, now string) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET sent_at=? WHERE id=?`), now, id)
	return err
}
