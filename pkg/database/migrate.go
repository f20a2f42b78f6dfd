package database

import (
	"database/sql"
	"fmt"
)

// The schema is embedded rather than read from disk so the daemon works from
// any working directory.
const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS pairing (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	passphrase_hash TEXT NOT NULL,
	token_version   INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS request_history (
	id           TEXT PRIMARY KEY,
	tmdb_id      INTEGER NOT NULL,
	media_type   TEXT NOT NULL,
	title        TEXT NOT NULL,
	release_year TEXT NOT NULL DEFAULT '',
	poster       TEXT NOT NULL DEFAULT '',
	is_4k        INTEGER NOT NULL DEFAULT 0,
	server_url   TEXT NOT NULL,
	requested_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_request_history_requested_at
	ON request_history (requested_at DESC);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
