package store

// Schema contains the DDL for the framework tables.
const Schema = `
-- Frameworks: a named test-automation project (config + pages + tests)
CREATE TABLE IF NOT EXISTS frameworks (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    version     INTEGER NOT NULL DEFAULT 1,
    config      TEXT NOT NULL DEFAULT '{}',
    pages       TEXT NOT NULL DEFAULT '[]',
    tests       TEXT NOT NULL DEFAULT '[]',
    sources     TEXT NOT NULL DEFAULT '[]',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_frameworks_updated ON frameworks(updated_at DESC);
`
