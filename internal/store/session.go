package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is one Start/Stop run of the frame loop.
type Session struct {
	ID        string     `json:"id"`
	DeviceID  int        `json:"device_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Captures  int        `json:"captures"`
}

// SessionRepository provides access to sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new open session.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, device_id, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.DeviceID, sess.StartedAt,
	)
	return err
}

// End marks a session as finished.
func (r *SessionRepository) End(id string, at time.Time) error {
	result, err := r.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, device_id, started_at, ended_at, captures FROM sessions WHERE id = ?`,
		id,
	)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

// List returns the most recent sessions first. A non-positive limit returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, device_id, started_at, ended_at, captures
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CloseOpen ends every session left open, e.g. after a crash.
func (r *SessionRepository) CloseOpen(at time.Time) (int64, error) {
	result, err := r.db.Exec(`UPDATE sessions SET ended_at = ? WHERE ended_at IS NULL`, at)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime
	if err := s.Scan(&sess.ID, &sess.DeviceID, &sess.StartedAt, &ended, &sess.Captures); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
