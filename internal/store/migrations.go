package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per detection session (Start to Stop)
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			device_id INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			captures INTEGER NOT NULL DEFAULT 0
		)`,

		// Capture metadata; pixel data stays in memory
		`CREATE TABLE IF NOT EXISTS captures (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			captured_at DATETIME NOT NULL,
			distance REAL NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			mirrored INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_captures_session_id ON captures(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_captures_captured_at ON captures(captured_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
