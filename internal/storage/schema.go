package storage

const schema = `
-- The 'decks' table stores named collections of items and where they were imported from.
CREATE TABLE IF NOT EXISTS decks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    source TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    last_scanned DATETIME
);

-- The 'items' table stores each learnable unit and its review statistics.
CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    deck_id INTEGER NOT NULL,
    hash TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '',
    review_count INTEGER NOT NULL DEFAULT 0,
    correct_count INTEGER NOT NULL DEFAULT 0,
    lapse_count INTEGER NOT NULL DEFAULT 0,
    interval_days INTEGER NOT NULL DEFAULT 0,
    strength_factor REAL NOT NULL DEFAULT 2.5,
    due_at DATETIME NOT NULL,
    last_reviewed_at DATETIME,

    UNIQUE(deck_id, hash),
    FOREIGN KEY(deck_id) REFERENCES decks(id) ON DELETE CASCADE
);

-- The 'sessions' table stores study passes; the queue is a JSON array of item ids.
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    deck_id INTEGER NOT NULL,
    created_at DATETIME NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    strategy TEXT NOT NULL,
    queue TEXT NOT NULL DEFAULT '[]',
    cursor INTEGER NOT NULL DEFAULT 0,
    items_played INTEGER NOT NULL DEFAULT 0,
    correct_count INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY(deck_id) REFERENCES decks(id) ON DELETE CASCADE
);

-- At most one active session per deck.
CREATE UNIQUE INDEX IF NOT EXISTS sessions_one_active_per_deck
    ON sessions(deck_id) WHERE is_active = 1;

-- The 'review_entries' table is the append-only review history.
CREATE TABLE IF NOT EXISTS review_entries (
    id TEXT PRIMARY KEY,
    item_id INTEGER NOT NULL,
    session_id TEXT,
    reviewed_at DATETIME NOT NULL,
    rating INTEGER NOT NULL,
    interval_before INTEGER NOT NULL,
    interval_after INTEGER NOT NULL,
    strength_before REAL NOT NULL,
    strength_after REAL NOT NULL,

    FOREIGN KEY(item_id) REFERENCES items(id) ON DELETE CASCADE,
    FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS review_entries_session ON review_entries(session_id);
CREATE INDEX IF NOT EXISTS review_entries_item ON review_entries(item_id);
`
