package catalog

const schemaVersionV1 = 1

const currentSchemaVersion = schemaVersionV1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS analyses (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	subtitle      TEXT,
	author        TEXT,
	networks      TEXT NOT NULL DEFAULT '[]',
	range_start   TEXT,
	range_end     TEXT,
	analysis_date TEXT,
	data_source   TEXT,
	raw_url       TEXT,
	root          TEXT NOT NULL,
	status        TEXT,
	errors        INTEGER NOT NULL DEFAULT 0,
	warnings      INTEGER NOT NULL DEFAULT 0,
	indexed_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_date ON analyses(analysis_date);
`
