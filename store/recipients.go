package store

// Recipient is a managed notification address. Recipients from the database
// take precedence over the static config lists.
type Recipient struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

func (db *DB) AddRecipient(email, now string) error {
	_, err := db.execWrite(db.Q(`INSERT INTO email_recipients (email, active, created_at) VALUES (?, 1, ?)
		ON CONFLICT(email) DO UPDATE SET active=1`), email, now)
	return err
}

func (db *DB) SetRecipientActive(email string, active bool) error {
	v := 0
	if active {
		v = 1
	}
	_, err := db.Exec(db.Q(`UPDATE email_recipients SET active=? WHERE email=?`), v, email)
	return err
}

func (db *DB) ListRecipients(onlyActive bool) ([]*Recipient, error) {
	query := `SELECT id, email, active, created_at FROM email_recipients`
	if onlyActive {
		query += ` WHERE active=1`
	}
	query += ` ORDER BY email`
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Recipient
	for rows.Next() {
		var r Recipient
		var active int
		if err := rows.Scan(&r.ID, &r.Email, &active, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Active = active != 0
		out = append(out, &r)
	}
	return out, rows.Err()
}
