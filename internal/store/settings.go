package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Setting keys read by the frame loop when a session starts. Other keys are
// free-form values for the kiosk UI.
const (
	KeyHandshakeThreshold = "handshake_threshold"
	KeyCooldownMs         = "cooldown_ms"
)

// ErrInvalidSetting is returned when a setting key or value is rejected.
var ErrInvalidSetting = errors.New("invalid setting")

// Tuning holds the loop overrides found in the settings table.
type Tuning struct {
	HandshakeThreshold float64
	HasThreshold       bool
	Cooldown           time.Duration
	HasCooldown        bool
}

// ValidateSetting checks a key and, for keys the frame loop reads, its value.
func ValidateSetting(key, value string) error {
	switch key {
	case "":
		return fmt.Errorf("%w: empty key", ErrInvalidSetting)
	case KeyHandshakeThreshold:
		if _, err := parseThreshold(value); err != nil {
			return err
		}
	case KeyCooldownMs:
		if _, err := parseCooldown(value); err != nil {
			return err
		}
	}
	return nil
}

func parseThreshold(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", ErrInvalidSetting, KeyHandshakeThreshold, value)
	}
	return f, nil
}

func parseCooldown(value string) (time.Duration, error) {
	ms, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("%w: %s must be a whole number >= 0, got %q", ErrInvalidSetting, KeyCooldownMs, value)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// SettingsRepository stores runtime-adjustable settings as key/value pairs.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value for key, or ErrNotFound.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// Set inserts or replaces the value for key. Values failing ValidateSetting
// are not stored.
func (r *SettingsRepository) Set(key, value string) error {
	if err := ValidateSetting(key, value); err != nil {
		return err
	}
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// All returns every stored setting.
func (r *SettingsRepository) All() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// Tuning returns the loop overrides currently stored. Stored values that no
// longer parse are ignored.
func (r *SettingsRepository) Tuning() (Tuning, error) {
	settings, err := r.All()
	if err != nil {
		return Tuning{}, err
	}

	var t Tuning
	if v, ok := settings[KeyHandshakeThreshold]; ok {
		if f, err := parseThreshold(v); err == nil {
			t.HandshakeThreshold, t.HasThreshold = f, true
		}
	}
	if v, ok := settings[KeyCooldownMs]; ok {
		if d, err := parseCooldown(v); err == nil {
			t.Cooldown, t.HasCooldown = d, true
		}
	}
	return t, nil
}
