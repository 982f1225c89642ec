package store

// Schema contains the complete DDL for the registry tables.
const Schema = `
-- Synthesized selectors: one row per (page, target) recorded by a caller
CREATE TABLE IF NOT EXISTS selectors (
    id              TEXT PRIMARY KEY,
    url             TEXT NOT NULL DEFAULT '',
    target          TEXT NOT NULL DEFAULT '',
    scope           TEXT NOT NULL DEFAULT '',   -- shadow host chain, '' = document
    selector        TEXT NOT NULL,
    strategy        TEXT NOT NULL,
    is_unique       INTEGER NOT NULL DEFAULT 0,
    score           REAL NOT NULL DEFAULT 0.0,
    stability       REAL NOT NULL DEFAULT 0.0,
    checks          INTEGER NOT NULL DEFAULT 0,
    failures        INTEGER NOT NULL DEFAULT 0,
    last_outcome    TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_selectors_url ON selectors(url);
CREATE INDEX IF NOT EXISTS idx_selectors_stability ON selectors(stability);

-- Verifications: a stored selector re-evaluated against a fresh document
CREATE TABLE IF NOT EXISTS verifications (
    id              TEXT PRIMARY KEY,
    selector_id     TEXT NOT NULL REFERENCES selectors(id) ON DELETE CASCADE,
    outcome         TEXT NOT NULL,
    matches         INTEGER NOT NULL DEFAULT 0,
    message         TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_verifications_selector ON verifications(selector_id, created_at DESC);
`
