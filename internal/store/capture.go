package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Capture is the metadata of one captured photo.
type Capture struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	CapturedAt time.Time `json:"captured_at"`
	Distance   float64   `json:"distance"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Mirrored   bool      `json:"mirrored"`
}

// CaptureRepository provides access to capture history.
type CaptureRepository struct {
	db *sql.DB
}

// Captures returns the capture repository for this store.
func (s *Store) Captures() *CaptureRepository {
	return &CaptureRepository{db: s.db}
}

// Create records a capture and bumps its session's capture count.
func (r *CaptureRepository) Create(c *Capture) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO captures (id, session_id, captured_at, distance, width, height, mirrored)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SessionID, c.CapturedAt, c.Distance, c.Width, c.Height, c.Mirrored,
	)
	if err != nil {
		return fmt.Errorf("insert capture: %w", err)
	}

	result, err := tx.Exec(`UPDATE sessions SET captures = captures + 1 WHERE id = ?`, c.SessionID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a capture by its ID.
func (r *CaptureRepository) GetByID(id string) (*Capture, error) {
	row := r.db.QueryRow(
		`SELECT id, session_id, captured_at, distance, width, height, mirrored
		 FROM captures WHERE id = ?`,
		id,
	)
	c, err := scanCapture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// List returns the most recent captures first. A non-positive limit returns all.
func (r *CaptureRepository) List(limit int) ([]*Capture, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query(
		`SELECT id, session_id, captured_at, distance, width, height, mirrored
		 FROM captures ORDER BY captured_at DESC LIMIT ?`,
		limit,
	)
}

// ListBySession returns a session's captures in capture order.
func (r *CaptureRepository) ListBySession(sessionID string) ([]*Capture, error) {
	return r.query(
		`SELECT id, session_id, captured_at, distance, width, height, mirrored
		 FROM captures WHERE session_id = ? ORDER BY captured_at ASC`,
		sessionID,
	)
}

// Count returns the total number of captures.
func (r *CaptureRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM captures`).Scan(&n)
	return n, err
}

func (r *CaptureRepository) query(q string, args ...any) ([]*Capture, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []*Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

func scanCapture(s scanner) (*Capture, error) {
	c := &Capture{}
	var mirrored int
	if err := s.Scan(&c.ID, &c.SessionID, &c.CapturedAt, &c.Distance, &c.Width, &c.Height, &mirrored); err != nil {
		return nil, err
	}
	c.Mirrored = mirrored != 0
	return c, nil
}
