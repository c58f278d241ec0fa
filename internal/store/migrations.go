package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Invocations table - one row per dispatched tool call
		`CREATE TABLE IF NOT EXISTS invocations (
			id TEXT PRIMARY KEY,
			tool TEXT NOT NULL,
			arguments TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL CHECK(status IN ('ok', 'error')),
			duration_ms INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_created_at ON invocations(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
