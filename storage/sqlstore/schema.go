package sqlstore

// schema is portable between SQLite and PostgreSQL. Timestamps are stored
// as UTC Unix microseconds; zero means unset.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id               BIGINT PRIMARY KEY,
		url              TEXT NOT NULL,
		title            TEXT NOT NULL,
		body             TEXT NOT NULL DEFAULT '',
		excerpt          TEXT NOT NULL DEFAULT '',
		source           TEXT NOT NULL DEFAULT '',
		published_at     BIGINT NOT NULL DEFAULT 0,
		discovered_at    BIGINT NOT NULL,
		reference_at     BIGINT NOT NULL,
		status           TEXT NOT NULL,
		translated_title TEXT,
		summary          TEXT,
		language         TEXT,
		keywords         TEXT,
		category         TEXT,
		enriched_at      BIGINT,
		updated_at       BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS documents_status_discovered ON documents (status, discovered_at, id)`,
	`CREATE INDEX IF NOT EXISTS documents_status_reference ON documents (status, reference_at)`,
	`CREATE TABLE IF NOT EXISTS checkpoints (
		name            TEXT PRIMARY KEY,
		cycle_id        TEXT NOT NULL,
		started_at      BIGINT NOT NULL,
		finished_at     BIGINT NOT NULL,
		attempted       INTEGER NOT NULL,
		succeeded       INTEGER NOT NULL,
		failed_count    INTEGER NOT NULL,
		deferred_count  INTEGER NOT NULL,
		updated_at      BIGINT NOT NULL
	)`,
}
