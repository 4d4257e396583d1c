package sqldb

import (
	"database/sql"
	"fmt"

	// Registers the pure-Go "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// OpenSQLite opens (or creates) a SQLite database and applies the schema.
//
// dbPath examples:
//   - "data/notifications.db" → file-based database (persistent)
//   - ":memory:"              → in-memory database (tests, lost on close)
//
// The pool is limited to a single connection. SQLite allows one writer at a
// time, and an in-memory database exists per connection, so a wider pool would
// only produce SQLITE_BUSY errors or split the data across databases.
func OpenSQLite(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight. Ignored for :memory:.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite; notifications reference users.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := newDB(conn, dialectSQLite)

	if err := migrateSQLite(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// migrateSQLite creates the schema. CREATE ... IF NOT EXISTS keeps it
// idempotent across restarts.
func migrateSQLite(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id             TEXT PRIMARY KEY,
			username       TEXT NOT NULL UNIQUE,
			is_online      INTEGER NOT NULL DEFAULT 0,
			follower_count INTEGER NOT NULL DEFAULT 0,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// A user may not follow themselves; the pair is the key, so a repeated
	// follow cannot duplicate the edge.
	_, err = conn.Exec(`
		CREATE TABLE IF NOT EXISTS user_followers (
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			follower_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, follower_id),
			CHECK (user_id <> follower_id)
		);
		CREATE INDEX IF NOT EXISTS idx_user_followers_follower ON user_followers(follower_id);
	`)
	if err != nil {
		return fmt.Errorf("creating user_followers table: %w", err)
	}

	// seq gives a stable tiebreak for records created in the same millisecond.
	// id is unique per recipient only: a broadcast writes one id to many rows.
	_, err = conn.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			id           TEXT NOT NULL,
			recipient_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type         TEXT NOT NULL,
			message      TEXT NOT NULL,
			seen         INTEGER NOT NULL DEFAULT 0,
			actor_id     TEXT NOT NULL,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (recipient_id, id)
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created
			ON notifications(recipient_id, created_at DESC, seq DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating notifications table: %w", err)
	}

	return nil
}
