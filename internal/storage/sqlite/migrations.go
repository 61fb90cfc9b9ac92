package sqlite

// schema contains the database schema DDL, narrowed from the teacher's
// wider set of tables to the two this core persists.
const schema = `
CREATE TABLE IF NOT EXISTS blacklist (
    source_id TEXT NOT NULL,
    asset_id TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (source_id, asset_id)
);

CREATE TABLE IF NOT EXISTS sequential_cursor (
    frame_id TEXT NOT NULL,
    source_id TEXT NOT NULL,
    cursor INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (frame_id, source_id)
);
`
