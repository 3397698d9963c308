package store

import (
	"database/sql"
	"time"
)

// Event is one journaled volume application.
type Event struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Volume    int       `json:"volume"`
	Percent   int       `json:"percent"`
	Distance  float64   `json:"distance"`
	OK        bool      `json:"ok"`
	Kind      string    `json:"kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventRepository provides access to volume events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the volume event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record inserts e and fills in its ID and timestamp.
func (r *EventRepository) Record(e *Event) error {
	e.CreatedAt = time.Now().UTC()

	result, err := r.db.Exec(
		`INSERT INTO volume_events (session_id, volume, percent, distance, ok, kind, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Volume, e.Percent, e.Distance, e.OK, e.Kind, e.Error, e.CreatedAt,
	)
	if err != nil {
		return err
	}

	e.ID, err = result.LastInsertId()
	return err
}

// ListBySession retrieves the events of a session in the order they happened.
func (r *EventRepository) ListBySession(sessionID string) ([]*Event, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, volume, percent, distance, ok, kind, error, created_at
		 FROM volume_events WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var ok int

		if err := rows.Scan(&e.ID, &e.SessionID, &e.Volume, &e.Percent, &e.Distance, &ok, &e.Kind, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}

		e.OK = ok != 0
		events = append(events, e)
	}

	return events, rows.Err()
}
