package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Subjects are created on first assessment.
		`CREATE TABLE IF NOT EXISTS subjects (
			id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL
		)`,

		// Assessments hold one analysis result each; payload is the result JSON.
		`CREATE TABLE IF NOT EXISTS assessments (
			id TEXT PRIMARY KEY,
			subject_id TEXT REFERENCES subjects(id) ON DELETE CASCADE,
			kind TEXT NOT NULL CHECK(kind IN ('face', 'eyes', 'tremor', 'neck', 'speech')),
			score REAL NOT NULL DEFAULT 0,
			payload TEXT NOT NULL DEFAULT '{}',
			is_baseline INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_assessments_subject_kind
			ON assessments(subject_id, kind, created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
