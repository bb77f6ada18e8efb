package server

// migrate runs database migrations. The schema sticks to types both
// Postgres and SQLite accept.
func (s *SQLStore) migrate() error {
	migrations := []string{
		migrationUsers,
		migrationSessions,
		migrationDocuments,
		migrationDocumentsIndex,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

const migrationUsers = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    anonymous BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TEXT NOT NULL
);
`

const migrationSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    token TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    expires_at TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
`

const migrationDocuments = `
CREATE TABLE IF NOT EXISTS documents (
    user_id TEXT NOT NULL REFERENCES users(id),
    collection TEXT NOT NULL,
    doc_id TEXT NOT NULL,
    data TEXT NOT NULL,
    sealed BOOLEAN NOT NULL DEFAULT FALSE,
    seq BIGINT NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (user_id, collection, doc_id)
);
`

const migrationDocumentsIndex = `
CREATE INDEX IF NOT EXISTS idx_documents_order ON documents(user_id, collection, seq);
`
