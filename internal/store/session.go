package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is one run of the frame loop.
type Session struct {
	ID          string     `json:"id"`
	Sink        string     `json:"sink"`
	HistorySize int        `json:"history_size"`
	Frames      int        `json:"frames"`
	Tracked     int        `json:"tracked"`
	Applied     int        `json:"applied"`
	Failures    int        `json:"failures"`
	Resets      int        `json:"resets"`
	FinalVolume int        `json:"final_volume"`
	Events      int        `json:"events"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// Duration returns how long the session ran, or has been running.
func (s *Session) Duration(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// Totals are the counters written when a session finishes.
type Totals struct {
	Frames      int
	Tracked     int
	Applied     int
	Failures    int
	Resets      int
	FinalVolume int
}

// SessionRepository provides access to sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. An empty ID is filled with a random UUID.
func (r *SessionRepository) Create(s *Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.StartedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, sink, history_size, started_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.Sink, s.HistorySize, s.StartedAt,
	)
	return err
}

// Finish records the final counters and end time of a session.
func (r *SessionRepository) Finish(id string, totals Totals) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET frames = ?, tracked = ?, applied = ?, failures = ?, resets = ?,
		 final_volume = ?, ended_at = ? WHERE id = ?`,
		totals.Frames, totals.Tracked, totals.Applied, totals.Failures, totals.Resets,
		totals.FinalVolume, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionColumns = `s.id, s.sink, s.history_size, s.frames, s.tracked, s.applied, s.failures,
	s.resets, s.final_volume, s.started_at, s.ended_at,
	(SELECT COUNT(*) FROM volume_events e WHERE e.session_id = s.id)`

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List retrieves the most recent sessions, newest first. A limit of 0 or
// less returns every session.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s ORDER BY s.started_at DESC, s.rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	s := &Session{}
	var ended sql.NullTime

	err := row.Scan(&s.ID, &s.Sink, &s.HistorySize, &s.Frames, &s.Tracked, &s.Applied,
		&s.Failures, &s.Resets, &s.FinalVolume, &s.StartedAt, &ended, &s.Events)
	if err != nil {
		return nil, err
	}

	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	return s, nil
}
