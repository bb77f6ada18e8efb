package db

import "fmt"

// migrate runs all database migrations
func (db *DB) migrate() error {
	migrations := []string{
		migrationCreateKV,
		migrationCreateSyncRegistrations,
		migrationCreateCacheEntries,
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// kv holds the local store: one full JSON value per key.
const migrationCreateKV = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

const migrationCreateSyncRegistrations = `
CREATE TABLE IF NOT EXISTS sync_registrations (
    tag TEXT PRIMARY KEY,
    registered_at TEXT NOT NULL
);
`

const migrationCreateCacheEntries = `
CREATE TABLE IF NOT EXISTS cache_entries (
    generation TEXT NOT NULL,
    path TEXT NOT NULL,
    status INTEGER NOT NULL,
    content_type TEXT NOT NULL DEFAULT '',
    body BLOB,
    cached_at TEXT NOT NULL,
    PRIMARY KEY (generation, path)
);

CREATE INDEX IF NOT EXISTS idx_cache_generation ON cache_entries(generation);
`
